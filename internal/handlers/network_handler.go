package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/repository"
)

type NetworkHandler struct {
	networkRepo *repository.NetworkRepository
}

func NewNetworkHandler(networkRepo *repository.NetworkRepository) *NetworkHandler {
	return &NetworkHandler{networkRepo: networkRepo}
}

type createNetworkRequest struct {
	Name       string `json:"name" binding:"required"`
	OwnerGuild string `json:"owner_guild_id" binding:"required"`
	AdminID    string `json:"admin_id" binding:"required"` // platform identity of the acting guild admin
}

// CreateNetwork creates a new sync network owned by a guild
func (h *NetworkHandler) CreateNetwork(c *gin.Context) {
	var req createNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	network, err := h.networkRepo.CreateNetwork(req.OwnerGuild, req.Name, req.AdminID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			ErrorResponse(c, http.StatusConflict, err.Error())
			return
		}
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, network)
}

// GetNetwork returns one network
func (h *NetworkHandler) GetNetwork(c *gin.Context) {
	networkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid network id")
		return
	}

	network, err := h.networkRepo.GetNetwork(networkID)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	c.JSON(http.StatusOK, network)
}

type joinNetworkRequest struct {
	GuildID string `json:"guild_id" binding:"required"`
	AdminID string `json:"admin_id" binding:"required"`
}

// JoinNetwork adds a guild to a network
func (h *NetworkHandler) JoinNetwork(c *gin.Context) {
	networkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid network id")
		return
	}

	var req joinNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	membership, err := h.networkRepo.JoinNetwork(networkID, req.GuildID, req.AdminID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNetworkNotFound):
			ErrorResponse(c, http.StatusNotFound, err.Error())
		case errors.Is(err, repository.ErrAlreadyMember):
			ErrorResponse(c, http.StatusConflict, err.Error())
		default:
			ErrorResponse(c, http.StatusInternalServerError, "Failed to join network")
		}
		return
	}

	c.JSON(http.StatusCreated, membership)
}

// LeaveNetwork removes a guild from a network, dissolving the network when
// the last member leaves
func (h *NetworkHandler) LeaveNetwork(c *gin.Context) {
	networkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid network id")
		return
	}
	guildID := c.Param("guild_id")

	if err := h.networkRepo.LeaveNetwork(networkID, guildID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNetworkNotFound):
			ErrorResponse(c, http.StatusNotFound, err.Error())
		case errors.Is(err, repository.ErrNotMember):
			ErrorResponse(c, http.StatusConflict, err.Error())
		default:
			ErrorResponse(c, http.StatusInternalServerError, "Failed to leave network")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// ListMembers returns the guild ids in a network
func (h *NetworkHandler) ListMembers(c *gin.Context) {
	networkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid network id")
		return
	}

	members, err := h.networkRepo.ListMembers(networkID)
	if err != nil {
		if errors.Is(err, repository.ErrNetworkNotFound) {
			ErrorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list members")
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// ListNetworksForGuild returns every network a guild belongs to
func (h *NetworkHandler) ListNetworksForGuild(c *gin.Context) {
	guildID := c.Param("guild_id")

	networks, err := h.networkRepo.ListNetworksForGuild(guildID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list networks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"networks": networks})
}
