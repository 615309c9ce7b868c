package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/VoiceBridge/internal/adapters/token"
	"github.com/dkeye/VoiceBridge/internal/app"
	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch   *app.Orchestrator
	issuer *token.Issuer
	ice    []webrtc.ICEServer
	// debug adds the online identities to /healthz.
	debug bool
}

type TokenRequest struct {
	Identity string `json:"identity"`
	RoomName string `json:"roomName"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Online int    `json:"online"`

	Identities []domain.Identity `json:"identities,omitempty"`
}

func iceServers(in []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(in))
	for _, s := range in {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

func (h *handlers) root(c *gin.Context) {
	c.String(http.StatusOK, "Signaling server is running")
}

func (h *handlers) health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Online: h.orch.Registry.Online()}
	if h.debug {
		resp.Identities = h.orch.Registry.Identities()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.ice})
}

func (h *handlers) getToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Identity == "" || req.RoomName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity and roomName are required"})
		return
	}
	identity, err := domain.ParseIdentity(req.Identity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tok, err := h.issuer.Issue(identity, req.RoomName)
	if errors.Is(err, token.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: tok})
}
