package rtcconfig

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"

	"github.com/rx3lixir/laba_meet/pkg/httputil"
)

// DefaultSTUN is used when no ICE servers are configured
const DefaultSTUN = "stun:stun.l.google.com:19302"

type Server struct {
	URLs       []string
	Username   string
	Credential string
}

// Response is what browsers pass to RTCPeerConnection
type Response struct {
	ICEServers         []webrtc.ICEServer `json:"iceServers"`
	ICETransportPolicy string             `json:"iceTransportPolicy"`
}

type Handler struct {
	servers []webrtc.ICEServer
	log     *slog.Logger
}

// NewHandler validates the configured ICE servers. TURN servers need credentials.
func NewHandler(servers []Server, log *slog.Logger) (*Handler, error) {
	if len(servers) == 0 {
		servers = []Server{{URLs: []string{DefaultSTUN}}}
	}

	ice := make([]webrtc.ICEServer, 0, len(servers))
	for i, s := range servers {
		if len(s.URLs) == 0 {
			return nil, fmt.Errorf("ice server %d has no urls", i)
		}
		for _, raw := range s.URLs {
			uri, err := stun.ParseURI(raw)
			if err != nil {
				return nil, fmt.Errorf("ice server %d: invalid url %q: %w", i, raw, err)
			}
			if isTURN(uri.Scheme) && (s.Username == "" || s.Credential == "") {
				return nil, fmt.Errorf("ice server %d: turn url %q needs username and credential", i, raw)
			}
		}

		server := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		ice = append(ice, server)
	}

	return &Handler{servers: ice, log: log}, nil
}

func isTURN(scheme stun.SchemeType) bool {
	return scheme == stun.SchemeTypeTURN || scheme == stun.SchemeTypeTURNS
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/rtc/config", httputil.Handler(h.HandleConfig, h.log))
}

func (h *Handler) Servers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, len(h.servers))
	copy(out, h.servers)
	return out
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) error {
	return httputil.RespondJSON(w, http.StatusOK, Response{
		ICEServers:         h.Servers(),
		ICETransportPolicy: webrtc.ICETransportPolicyAll.String(),
	})
}
