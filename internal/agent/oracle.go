// internal/agent/oracle.go
package agent

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const promptTemplate = `You are an Android Driver Agent. Output ONLY a valid JSON object.

GOAL: %s
SCREEN_CONTEXT:
%s

Available Actions:
- {"action": "tap", "coordinates": [x, y], "reason": "..."}
- {"action": "type", "text": "...", "reason": "..."}
- {"action": "home", "reason": "..."}
- {"action": "back", "reason": "..."}
- {"action": "wait", "reason": "..."}
- {"action": "done", "reason": "..."}
`

// BuildPrompt renders the single decision request for goal and screen.
func BuildPrompt(goal string, desc screen.Description) string {
	return fmt.Sprintf(promptTemplate, goal, desc.String())
}

// Oracle asks the language model for the next Action.
type Oracle struct {
	client llmclient.Client
	opts   llmclient.GenerationOptions
	logger *zap.Logger
}

// NewOracle wraps an injected model client.
func NewOracle(client llmclient.Client, opts llmclient.GenerationOptions, logger *zap.Logger) *Oracle {
	opts.ForceJSONFormat = true
	return &Oracle{
		client: client,
		opts:   opts,
		logger: logger.Named("oracle"),
	}
}

// Decide sends one prompt and parses the reply into an Action. Any failure
// is a *DecisionError; there is no retry.
func (o *Oracle) Decide(ctx context.Context, goal string, desc screen.Description) (Action, error) {
	reply, err := o.client.Generate(ctx, llmclient.GenerationRequest{
		UserPrompt: BuildPrompt(goal, desc),
		Options:    o.opts,
	})
	if err != nil {
		return nil, &DecisionError{Code: ErrCodeOracleFailure, Err: err}
	}
	o.logger.Debug("Oracle replied", zap.String("raw", reply))
	return ParseAction(reply)
}

// ParseAction parses one JSON object into an Action. It does not strip
// markdown fences or repair the payload.
func ParseAction(raw string) (Action, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, newDecisionError(ErrCodeEmptyReply, raw, "oracle returned an empty reply")
	}

	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, &DecisionError{Code: ErrCodeMalformedReply, Raw: raw, Err: fmt.Errorf("reply is not a JSON object: %w", err)}
	}
	if fields == nil {
		return nil, newDecisionError(ErrCodeMalformedReply, raw, "reply is null")
	}

	tagRaw, ok := fields["action"]
	if !ok {
		return nil, newDecisionError(ErrCodeMissingAction, raw, "reply has no 'action' field")
	}
	if isNull(tagRaw) {
		return nil, newDecisionError(ErrCodeMissingAction, raw, "'action' is null")
	}
	var tag string
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return nil, newDecisionError(ErrCodeMissingAction, raw, "'action' must be a string, got %s", string(tagRaw))
	}

	reason, err := optionalString(fields, "reason")
	if err != nil {
		return nil, &DecisionError{Code: ErrCodeInvalidParameters, Raw: raw, Err: err}
	}

	switch ActionKind(tag) {
	case KindTap:
		x, y, err := coordinates(fields)
		if err != nil {
			return nil, &DecisionError{Code: ErrCodeInvalidParameters, Raw: raw, Err: err}
		}
		return TapAction{X: x, Y: y, Rationale: reason}, nil
	case KindType:
		text, err := optionalString(fields, "text")
		if err != nil {
			return nil, &DecisionError{Code: ErrCodeInvalidParameters, Raw: raw, Err: err}
		}
		return TypeAction{Text: text, Rationale: reason}, nil
	case KindHome:
		return HomeAction{Rationale: reason}, nil
	case KindBack:
		return BackAction{Rationale: reason}, nil
	case KindWait:
		return WaitAction{Rationale: reason}, nil
	case KindDone:
		return DoneAction{Rationale: reason}, nil
	default:
		return UnknownAction{Tag: tag, Rationale: reason}, nil
	}
}

func coordinates(fields map[string]jsoniter.RawMessage) (int, int, error) {
	raw, ok := fields["coordinates"]
	if !ok || isNull(raw) {
		return 0, 0, fmt.Errorf("tap requires 'coordinates'")
	}
	var xy []int
	if err := json.Unmarshal(raw, &xy); err != nil {
		return 0, 0, fmt.Errorf("'coordinates' must be a pair of integers: %w", err)
	}
	if len(xy) != 2 {
		return 0, 0, fmt.Errorf("'coordinates' must hold exactly two integers, got %d", len(xy))
	}
	return xy[0], xy[1], nil
}

// optionalString reads key as a string. Absent and null both yield "".
func optionalString(fields map[string]jsoniter.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("'%s' must be a string: %w", key, err)
	}
	return s, nil
}

func isNull(raw jsoniter.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
