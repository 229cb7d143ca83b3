// internal/service/chat_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/unclebandit/campaignplanner-backend/internal/action"
	"github.com/unclebandit/campaignplanner-backend/internal/assistant"
	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
	"github.com/unclebandit/campaignplanner-backend/internal/gateway"
	"github.com/unclebandit/campaignplanner-backend/internal/goal"
	"github.com/unclebandit/campaignplanner-backend/internal/repository"
	"github.com/unclebandit/campaignplanner-backend/internal/sync"
)

// ChatService runs one assistant exchange end to end: build the calendar
// context, call the assistant, parse the reply through the action protocol,
// and execute a validated command through the sync controller. The reply
// string always passes through the display formatting transform.
type ChatService struct {
	Assistant assistant.Gateway
	Sessions  *sync.SessionManager
	Goals     repository.GoalRepositoryInterface
	Gateway   gateway.Gateway
	Engine    goal.Engine
}

// ChatRequest is one user utterance against a client's month view.
type ChatRequest struct {
	ClientID  string
	Year      int
	Month     time.Month
	Utterance string
	History   []assistant.Message
}

// ChatResult is what the UI renders: display text, plus the executed
// mutation when the reply carried an action.
type ChatResult struct {
	Reply    string           `json:"reply"`
	Executed *sync.ExecResult `json:"executed,omitempty"`
}

func (s *ChatService) Handle(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	ctrl, err := s.Sessions.Session(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	events := ctrl.Events()

	var activeGoal *goal.Progress
	g, goalErr := s.Goals.Get(req.ClientID, req.Year, int(req.Month))
	if goalErr != nil && !appErrors.IsNotFound(goalErr) {
		return nil, goalErr
	}
	if g != nil {
		estimate := s.Engine.EstimateRevenue(events, req.Year, req.Month)
		p := s.Engine.Progress(*g, estimate)
		activeGoal = &p
	}

	clientName := req.ClientID
	if doc, err := s.Gateway.GetDocument(ctx, gateway.CollectionClients, req.ClientID); err == nil {
		if name, ok := doc["name"].(string); ok && name != "" {
			clientName = name
		}
	}

	systemContext := assistant.BuildContext(clientName, req.Year, req.Month, events, g, activeGoal)

	reply, err := s.Assistant.Send(ctx, systemContext, req.History, req.Utterance)
	if err != nil {
		return nil, err
	}

	cmd := action.Parse(reply)
	if cmd == nil {
		// prose-only reply, no mutation
		return &ChatResult{Reply: action.FormatMessage(reply)}, nil
	}

	result, err := ctrl.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}

	return &ChatResult{Reply: confirmationText(result), Executed: result}, nil
}

func confirmationText(res *sync.ExecResult) string {
	switch res.Kind {
	case action.KindCreate:
		return fmt.Sprintf("✅ Created %q on %s.", res.Event.Title, res.Event.Date)
	case action.KindUpdate:
		return fmt.Sprintf("✅ Updated %q.", res.Event.Title)
	case action.KindDelete:
		return fmt.Sprintf("✅ Deleted event %s.", res.RemovedIDs[0])
	case action.KindDeleteAll:
		return fmt.Sprintf("✅ Deleted %d campaigns.", len(res.RemovedIDs))
	}
	return "Done."
}
