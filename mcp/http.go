package mcp

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const maxBody = 1 << 20

// Mount registers the transports on r:
//
//	POST /mcp                          request/response
//	GET  /mcp/sse                      server push stream
//	POST /mcp/messages?sessionId=<id>  messages for a stream
func (s *Server) Mount(r gin.IRouter) {
	r.POST("/mcp", s.handlePost)
	r.GET("/mcp/sse", s.handleStream)
	r.POST("/mcp/messages", s.handleMessage)
}

func (s *Server) handlePost(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	resp := s.Handle(c.Request.Context(), body)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	c.Data(http.StatusOK, "application/json", resp)
}

func (s *Server) handleStream(c *gin.Context) {
	sess := s.sessions.open()
	defer s.sessions.close(sess.id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("endpoint", "/mcp/messages?sessionId="+sess.id)
	c.Writer.Flush()

	log := s.log.With().Str("session", sess.id).Logger()
	log.Debug().Msg("sse session opened")

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("sse session closed")
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			c.Writer.Flush()
		case msg := <-sess.out:
			c.SSEvent("message", string(msg))
			c.Writer.Flush()
		}
	}
}

func (s *Server) handleMessage(c *gin.Context) {
	sess, ok := s.sessions.get(c.Query("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNoSession.Error()})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if resp := s.Handle(c.Request.Context(), body); resp != nil {
		if err := sess.send(c.Request.Context(), resp); err != nil {
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
			return
		}
	}
	c.Status(http.StatusAccepted)
}
