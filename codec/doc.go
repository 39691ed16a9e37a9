// Package codec translates coupler chains to and from the JSON records exchanged with the
// design backend.
//
// Stage records carry coupler_ratio, tap_km, tap_output_dbm, throughput_km and
// through_output_dbm; output powers are computed when a record is encoded and ignored when
// one is decoded. Chain records carry name, input_power, couplers and status, plus id and
// created_at when produced by a server.
//
// Decoding is lenient the way the backend demands: numbers may arrive as JSON strings,
// identifiers as numbers or strings, and ratio labels in either order or with ':' separators.
// Reinterpreted ratio labels are logged as warnings since they may hide a data error.
package codec
