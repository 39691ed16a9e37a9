// Package domain defines the core business logic and data structures of the network design engine.
// It contains the coupler chain models, Stage and Chain, the propagation rules that tie them
// together, and the DesignRepository interface that defines the contract for persisting designs.
//
// A Chain is the single source of truth for power propagation: a stage's input power is always
// derived from the chain's initial power and the through outputs of the stages before it.
// By defining the repository as an interface, the domain package stays independent of whether
// designs live in a remote REST backend or in the local SQLite store.
package domain
