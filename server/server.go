package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/docq-ai/docq/internal/models"
	"github.com/docq-ai/docq/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the WebSocket envelope. Client sends type "query"; the
// server replies with status, sources, stream, answer and error messages.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	K       int         `json:"k,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Addr          string
	UploadDir     string
	MaxFileSizeMB int
	TopK          int
	Streaming     bool
}

// Server exposes the Q&A pipeline over HTTP and WebSocket.
type Server struct {
	config Config
	engine *rag.Engine
}

func New(config Config, engine *rag.Engine) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.UploadDir == "" {
		config.UploadDir = "data/uploads"
	}
	if config.MaxFileSizeMB == 0 {
		config.MaxFileSizeMB = 50
	}
	if config.TopK == 0 {
		config.TopK = 4
	}

	return &Server{
		config: config,
		engine: engine,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe starts the server on the configured address.
func (s *Server) ListenAndServe() error {
	log.Printf("Starting server on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.Routes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleUpload accepts multipart uploads under the "files" field, saves
// them into the upload directory and ingests them into the index.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := int64(s.config.MaxFileSizeMB) << 20
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	var paths []string
	for _, header := range files {
		path, err := s.saveUpload(header)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to save %s: %v", header.Filename, err), http.StatusInternalServerError)
			return
		}
		paths = append(paths, path)
	}

	result, err := s.engine.Ingest(r.Context(), paths, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingest failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"files_loaded":  result.FilesLoaded,
		"files_skipped": result.FilesSkipped,
		"chunks_stored": result.ChunksStored,
		"seconds":       result.Duration.Seconds(),
	})
}

func (s *Server) saveUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := filepath.Base(header.Filename)
	path := filepath.Join(s.config.UploadDir, name)

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return path, nil
}

type queryRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
	Source   string `json:"source,omitempty"` // restrict retrieval to one file
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.K == 0 {
		req.K = s.config.TopK
	}

	var answer models.Answer
	var err error
	if req.Source != "" {
		answer, err = s.engine.QueryInSource(r.Context(), req.Question, req.K, req.Source)
	} else {
		answer, err = s.engine.Query(r.Context(), req.Question, req.K)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, answer)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.Clear(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "cleared"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: "invalid message"})
			continue
		}

		if msg.Type != "query" {
			s.sendMessage(conn, Message{Type: "error", Content: fmt.Sprintf("unknown message type %q", msg.Type)})
			continue
		}

		s.handleQueryMessage(r, conn, msg)
	}
}

func (s *Server) handleQueryMessage(r *http.Request, conn *websocket.Conn, msg Message) {
	k := msg.K
	if k == 0 {
		k = s.config.TopK
	}

	if s.config.Streaming {
		s.sendMessage(conn, Message{Type: "status", Content: "retrieving"})

		stream, sources, err := s.engine.StreamQuery(r.Context(), msg.Content, k)
		if err != nil {
			s.sendMessage(conn, Message{Type: "error", Content: err.Error()})
			return
		}

		s.sendMessage(conn, Message{Type: "sources", Data: sources})

		for chunk := range stream {
			if strings.HasPrefix(chunk, "Error:") {
				s.sendMessage(conn, Message{Type: "error", Content: chunk})
				return
			}
			s.sendMessage(conn, Message{Type: "stream", Content: chunk})
		}

		s.sendMessage(conn, Message{Type: "done"})
		return
	}

	answer, err := s.engine.Query(r.Context(), msg.Content, k)
	if err != nil {
		s.sendMessage(conn, Message{Type: "error", Content: err.Error()})
		return
	}
	s.sendMessage(conn, Message{Type: "answer", Content: answer.Text, Data: answer})
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
