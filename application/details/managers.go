package details

import (
	"fmt"

	"studio-backend/domain/core/aggregates"
)

// TimeDelayManager configures a pause step. The delay amount must be a
// positive number and the unit one of the supported windows.
type TimeDelayManager struct{}

var timeDelayUnits = map[string]bool{
	"minutes": true,
	"hours":   true,
	"days":    true,
}

// Validate checks the delay amount and unit
func (TimeDelayManager) Validate(ctx Context) []ValidationError {
	var errs []ValidationError
	amount, ok := numberField(ctx.Config, "amount")
	if !ok || amount <= 0 {
		errs = append(errs, ValidationError{Message: "delay must be a positive number", TargetField: "amount"})
	}
	unit, _ := ctx.Config["unit"].(string)
	if !timeDelayUnits[unit] {
		errs = append(errs, ValidationError{Message: "unit must be minutes, hours or days", TargetField: "unit"})
	}
	return errs
}

// Export stores the delay and a human snippet
func (TimeDelayManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	amount, _ := numberField(ctx.Config, "amount")
	unit, _ := ctx.Config["unit"].(string)
	snippet := fmt.Sprintf("Wait %g %s", amount, unit)
	return aggregates.NodeDetailsPatch{
		Config:  map[string]any{"amount": amount, "unit": unit},
		Snippet: &snippet,
	}, nil
}

// SendMessageManager configures a plain outbound message
type SendMessageManager struct{}

// Validate requires a non-empty message
func (SendMessageManager) Validate(ctx Context) []ValidationError {
	message, _ := ctx.Config["message"].(string)
	if message == "" {
		return []ValidationError{{Message: "message cannot be empty", TargetField: "message"}}
	}
	return nil
}

// Export stores the message and uses it as the snippet
func (SendMessageManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	message, _ := ctx.Config["message"].(string)
	return aggregates.NodeDetailsPatch{
		Config:  map[string]any{"message": message},
		Snippet: &message,
	}, nil
}

// SendButtonsManager configures a message with reply buttons. Each button
// maps to one output port; missing ports are backfilled after export.
type SendButtonsManager struct {
	MaxButtons int
}

// Validate requires a message and between one and MaxButtons buttons
func (m SendButtonsManager) Validate(ctx Context) []ValidationError {
	var errs []ValidationError
	message, _ := ctx.Config["message"].(string)
	if message == "" {
		errs = append(errs, ValidationError{Message: "message cannot be empty", TargetField: "message"})
	}
	buttons := stringSlice(ctx.Config, "buttons")
	if len(buttons) == 0 {
		errs = append(errs, ValidationError{Message: "at least one button is required", TargetField: "buttons"})
	} else if len(buttons) > m.MaxButtons {
		errs = append(errs, ValidationError{
			Message:     fmt.Sprintf("at most %d buttons are allowed", m.MaxButtons),
			TargetField: "buttons",
		})
	}
	for i, button := range buttons {
		if button == "" {
			errs = append(errs, ValidationError{
				Message:     "button label cannot be empty",
				TargetField: fmt.Sprintf("buttons[%d]", i),
			})
		}
	}
	return errs
}

// Export stores the message and button labels
func (m SendButtonsManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	message, _ := ctx.Config["message"].(string)
	buttons := stringSlice(ctx.Config, "buttons")
	return aggregates.NodeDetailsPatch{
		Config:  map[string]any{"message": message, "buttons": buttons},
		Snippet: &message,
	}, nil
}

// RequiredOutputs is one port per button
func (m SendButtonsManager) RequiredOutputs(ctx Context) int {
	return len(stringSlice(ctx.Config, "buttons"))
}

// SendListManager configures a message with a selectable list of rows
type SendListManager struct {
	MaxRows int
}

// Validate requires a message and between one and MaxRows rows
func (m SendListManager) Validate(ctx Context) []ValidationError {
	var errs []ValidationError
	message, _ := ctx.Config["message"].(string)
	if message == "" {
		errs = append(errs, ValidationError{Message: "message cannot be empty", TargetField: "message"})
	}
	rows := stringSlice(ctx.Config, "rows")
	if len(rows) == 0 {
		errs = append(errs, ValidationError{Message: "at least one row is required", TargetField: "rows"})
	} else if len(rows) > m.MaxRows {
		errs = append(errs, ValidationError{
			Message:     fmt.Sprintf("at most %d rows are allowed", m.MaxRows),
			TargetField: "rows",
		})
	}
	return errs
}

// Export stores the message and row labels
func (m SendListManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	message, _ := ctx.Config["message"].(string)
	rows := stringSlice(ctx.Config, "rows")
	return aggregates.NodeDetailsPatch{
		Config:  map[string]any{"message": message, "rows": rows},
		Snippet: &message,
	}, nil
}

// RequiredOutputs is one port per row
func (m SendListManager) RequiredOutputs(ctx Context) int {
	return len(stringSlice(ctx.Config, "rows"))
}

// CloseConversationManager configures the terminal step; it has no fields
type CloseConversationManager struct{}

// Validate accepts any payload
func (CloseConversationManager) Validate(ctx Context) []ValidationError {
	return nil
}

// Export stores a fixed snippet
func (CloseConversationManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	snippet := "Close the conversation"
	return aggregates.NodeDetailsPatch{Snippet: &snippet}, nil
}

// SetVariableManager configures a variable capture step. Exporting defines
// the variable for downstream nodes.
type SetVariableManager struct{}

// Validate requires a variable name
func (SetVariableManager) Validate(ctx Context) []ValidationError {
	name, _ := ctx.Config["variable"].(string)
	if name == "" {
		return []ValidationError{{Message: "variable name cannot be empty", TargetField: "variable"}}
	}
	return nil
}

// Export stores the assignment and publishes the defined variable
func (SetVariableManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	name, _ := ctx.Config["variable"].(string)
	value, _ := ctx.Config["value"].(string)
	snippet := fmt.Sprintf("Set %s = %s", name, value)
	return aggregates.NodeDetailsPatch{
		Config:          map[string]any{"variable": name, "value": value},
		Snippet:         &snippet,
		DefinedVariable: &aggregates.DefinedVariable{Name: name, Enabled: true},
	}, nil
}

// IfConditionManager configures a two-way branch on an upstream variable
type IfConditionManager struct{}

var conditionOperators = map[string]bool{
	"equals":       true,
	"not_equals":   true,
	"contains":     true,
	"greater_than": true,
	"less_than":    true,
}

// Validate requires a known operator and a variable visible from upstream
func (IfConditionManager) Validate(ctx Context) []ValidationError {
	var errs []ValidationError
	name, _ := ctx.Config["variable"].(string)
	if name == "" {
		errs = append(errs, ValidationError{Message: "variable cannot be empty", TargetField: "variable"})
	} else if !variableAvailable(ctx.AvailableVariables, name) {
		errs = append(errs, ValidationError{
			Message:     fmt.Sprintf("variable %q is not defined upstream", name),
			TargetField: "variable",
		})
	}
	operator, _ := ctx.Config["operator"].(string)
	if !conditionOperators[operator] {
		errs = append(errs, ValidationError{Message: "unknown operator", TargetField: "operator"})
	}
	return errs
}

// Export stores the condition and a readable snippet
func (IfConditionManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	name, _ := ctx.Config["variable"].(string)
	operator, _ := ctx.Config["operator"].(string)
	value, _ := ctx.Config["value"].(string)
	snippet := fmt.Sprintf("If %s %s %s", name, operator, value)
	return aggregates.NodeDetailsPatch{
		Config:  map[string]any{"variable": name, "operator": operator, "value": value},
		Snippet: &snippet,
	}, nil
}

// RequiredOutputs is the true and false branch
func (IfConditionManager) RequiredOutputs(ctx Context) int {
	return 2
}

func variableAvailable(vars []aggregates.DefinedVariable, name string) bool {
	for _, v := range vars {
		if v.Name == name {
			return true
		}
	}
	return false
}

func numberField(config map[string]any, key string) (float64, bool) {
	switch v := config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringSlice(config map[string]any, key string) []string {
	raw, ok := config[key].([]any)
	if !ok {
		if typed, ok := config[key].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
