package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"archui-experiment-service/internal/app"
	"archui-experiment-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler speaks the participant protocol over a websocket: the client
// fetches its task assignment, runs searches, rates results, and submits.
type WSHandler struct {
	service  *app.ExperimentService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ExperimentService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectTaskPayload struct {
	TaskName string `json:"taskName"`
}

type searchPayload struct {
	TaskName    string `json:"taskName"`
	QuestionKey string `json:"questionKey"`
	Query       string `json:"query"`
}

type ratePayload struct {
	TaskName    string `json:"taskName"`
	QuestionKey string `json:"questionKey"`
	Position    int    `json:"position"`
	IssueID     int    `json:"issueId"`
	Rating      string `json:"rating"`
}

type submitPayload struct {
	TaskName    string `json:"taskName"`
	QuestionKey string `json:"questionKey"`
}

type tasksPayload struct {
	Assignment   domain.TaskAssignment `json:"assignment"`
	Changed      bool                  `json:"changed"`
	SelectedTask string                `json:"selectedTask,omitempty"`
	Solved       map[string]int        `json:"solved"`
}

type resultsPayload struct {
	Query     string                `json:"query"`
	Results   []domain.SearchResult `json:"results"`
	NoResults bool                  `json:"noResults"`
}

type ratedPayload struct {
	Position int `json:"position"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and wires it into the experiment use cases.
// The participant is identified by the mtrNo query parameter for the lifetime
// of the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	mtrNo := r.URL.Query().Get("mtrNo")
	if mtrNo == "" {
		http.Error(w, "missing mtrNo", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "fetchTasks":
			assignment, changed, err := h.service.FetchTasks(r.Context(), mtrNo)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "tasks", tasksPayload{
				Assignment:   assignment,
				Changed:      changed,
				SelectedTask: h.service.SelectedTask(mtrNo),
				Solved:       h.service.Progress(mtrNo),
			})

		case "selectTask":
			var payload selectTaskPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid selectTask payload"))
				continue
			}
			if err := h.service.SelectTask(r.Context(), mtrNo, payload.TaskName); err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "taskSelected", selectTaskPayload{TaskName: payload.TaskName})

		case "search":
			var payload searchPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid search payload"))
				continue
			}
			outcome, err := h.service.Search(r.Context(), mtrNo, payload.TaskName, payload.QuestionKey, payload.Query)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			if outcome.Stale {
				// A newer search owns the question's display state.
				continue
			}
			h.send(conn, "results", resultsPayload{
				Query:     outcome.Query,
				Results:   outcome.Results,
				NoResults: outcome.NoResults,
			})

		case "rate":
			var payload ratePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid rate payload"))
				continue
			}
			if err := h.service.Rate(mtrNo, payload.TaskName, payload.QuestionKey, payload.Position, payload.IssueID, payload.Rating); err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "rated", ratedPayload{Position: payload.Position})

		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid submit payload"))
				continue
			}
			outcome, err := h.service.Submit(r.Context(), mtrNo, payload.TaskName, payload.QuestionKey)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "submitted", outcome)

		default:
			h.sendError(conn, errors.New("unsupported message type"))
		}
	}
}

func (h *WSHandler) send(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (h *WSHandler) sendError(conn *websocket.Conn, err error) {
	h.send(conn, "error", errorPayload{Message: err.Error()})
}
