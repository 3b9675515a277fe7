package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/neurosim-server/internal/domain"
)

const (
	defaultFrameInterval = 250 * time.Millisecond
	maxFrameInterval     = 5 * time.Second
	streamWriteTimeout   = 10 * time.Second
)

var cascadeUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Visualization clients are served from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// cascadeStreamMeta is the opening websocket message: the static geometry a
// client needs before frames start arriving.
type cascadeStreamMeta struct {
	StartRegion      domain.BrainRegion         `json:"start_region"`
	Neurotransmitter domain.Neurotransmitter    `json:"neurotransmitter"`
	Nodes            []domain.CascadeNode       `json:"nodes"`
	Connections      []domain.CascadeConnection `json:"connections"`
	TotalFrames      int                        `json:"total_frames"`
	FrameIntervalMS  int64                      `json:"frame_interval_ms"`
}

// streamEnvelope frames every websocket payload with a type discriminator:
// "meta", "frame" or "complete".
type streamEnvelope struct {
	Type  string               `json:"type"`
	Meta  *cascadeStreamMeta   `json:"meta,omitempty"`
	Frame *domain.CascadeFrame `json:"frame,omitempty"`
}

// handleCascadeStream upgrades the connection and replays the cascade frames
// paced at the requested interval. The precomputed geometry goes first so the
// client can lay out the scene before activations animate.
func (s *Server) handleCascadeStream(c *gin.Context) {
	patientID := c.Query("patient_id")
	region := regionOrDefault(c.Query("brain_region"))
	nt := neurotransmitterOrDefault(c.Query("neurotransmitter"))
	timeSteps := queryInt(c, "time_steps", 0)

	interval := time.Duration(queryInt(c, "interval_ms", 0)) * time.Millisecond
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	if interval > maxFrameInterval {
		interval = maxFrameInterval
	}

	// Validate before upgrading so bad requests get a plain HTTP error.
	viz, err := s.temporal.GetCascadeVisualization(c.Request.Context(), patientID, region, nt, timeSteps)
	if err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := cascadeUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain control frames so close handshakes are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeStreamMessage(conn, streamEnvelope{
		Type: "meta",
		Meta: &cascadeStreamMeta{
			StartRegion:      viz.StartRegion,
			Neurotransmitter: viz.Neurotransmitter,
			Nodes:            viz.Nodes,
			Connections:      viz.Connections,
			TotalFrames:      len(viz.TimeSteps),
			FrameIntervalMS:  interval.Milliseconds(),
		},
	}); err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := range viz.TimeSteps {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}

		frame := viz.TimeSteps[i]
		if err := s.writeStreamMessage(conn, streamEnvelope{Type: "frame", Frame: &frame}); err != nil {
			return
		}
	}

	if err := s.writeStreamMessage(conn, streamEnvelope{Type: "complete"}); err != nil {
		return
	}

	deadline := time.Now().Add(streamWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream complete"), deadline)
}

func (s *Server) writeStreamMessage(conn *websocket.Conn, envelope streamEnvelope) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(envelope); err != nil {
		s.logger.WithError(err).Debug("Websocket write failed, closing stream")
		return err
	}
	return nil
}
