package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fiberonix/netdesign/codec"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/logger"
	"github.com/gin-gonic/gin"
)

type designHandler struct {
	repo    domain.DesignRepository
	decoder *codec.Decoder
	log     *logger.Logger
}

// GET /designs/
func (h *designHandler) list(c *gin.Context) {
	chains, err := h.repo.ListDesigns(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	records := make([]codec.ChainRecord, len(chains))
	for i, chain := range chains {
		records[i] = codec.EncodeChainWithMeta(chain)
	}
	respondOK(c, records)
}

// GET /designs/:id/
func (h *designHandler) get(c *gin.Context) {
	chain, err := h.repo.GetDesign(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, codec.EncodeChainWithMeta(chain))
}

// POST /designs/
// body: a chain record; any id is ignored.
func (h *designHandler) create(c *gin.Context) {
	var record codec.ChainRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	chain, err := h.decoder.DecodeNewChain(record)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := chain.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_design", err)
		return
	}

	id, err := h.repo.CreateDesign(c.Request.Context(), chain)
	if err != nil {
		h.fail(c, err)
		return
	}
	stored, err := h.repo.GetDesign(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, codec.EncodeChainWithMeta(stored))
}

// PUT /designs/:id/
// body: a full chain record replacing the stored one.
func (h *designHandler) replace(c *gin.Context) {
	var record codec.ChainRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	chain := h.decoder.DecodeChain(record)
	chain.ID = c.Param("id")
	h.save(c, chain)
}

// PATCH /designs/:id/
// body: any subset of name, description, input_power, couplers, status.
func (h *designHandler) patch(c *gin.Context) {
	var p codec.ChainPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	stored, err := h.repo.GetDesign(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.save(c, h.decoder.ApplyPatch(stored, p))
}

// DELETE /designs/:id/
func (h *designHandler) delete(c *gin.Context) {
	if err := h.repo.DeleteDesign(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *designHandler) save(c *gin.Context, chain *domain.Chain) {
	if err := chain.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_design", err)
		return
	}
	if err := h.repo.UpdateDesign(c.Request.Context(), chain); err != nil {
		h.fail(c, err)
		return
	}
	stored, err := h.repo.GetDesign(c.Request.Context(), chain.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, codec.EncodeChainWithMeta(stored))
}

func (h *designHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrDesignNotFound) {
		respondError(c, http.StatusNotFound, "design_not_found", fmt.Errorf("design %q not found", c.Param("id")))
		return
	}
	c.Error(err)
	h.log.Error("design repository failure", "error", err)
	respondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal error"))
}
