package validate

import (
	"net/http"
	"net/url"

	"github.com/shaiso/Reactor/internal/domain"
)

// allowedWebhookMethods — HTTP методы, допустимые для webhook действия.
var allowedWebhookMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// validateAction проверяет конфигурацию действия шага.
// Неизвестные типы действий проходят без ошибок.
func validateAction(step *domain.Step, prefix string) []Error {
	cfg := step.ActionConfig
	field := func(key string) string { return prefix + ".action_config." + key }

	switch step.ActionType {
	case domain.ActionSendEmail:
		var errs []Error
		if configString(cfg, "template_id") == "" && configString(cfg, "subject") == "" {
			errs = append(errs, Error{
				Field:   field("subject"),
				Message: "send_email requires a template or a subject",
			})
		}
		if configString(cfg, "to") == "" && configString(cfg, "to_field") == "" {
			errs = append(errs, Error{
				Field:   field("to"),
				Message: "send_email requires a recipient or a recipient field",
			})
		}
		return errs

	case domain.ActionWebhook:
		var errs []Error
		rawURL := configString(cfg, "url")
		if rawURL == "" {
			errs = append(errs, Error{
				Field:   field("url"),
				Message: "webhook requires a url",
			})
		} else if !validWebhookURL(rawURL) {
			errs = append(errs, Error{
				Field:   field("url"),
				Message: "webhook url is not a valid http(s) URL",
			})
		}
		if method := configString(cfg, "method"); method != "" && !allowedWebhookMethods[method] {
			errs = append(errs, Error{
				Field:   field("method"),
				Message: "webhook method must be GET, POST, PUT, PATCH or DELETE",
			})
		}
		return errs

	case domain.ActionUpdateField:
		var errs []Error
		if configString(cfg, "field") == "" {
			errs = append(errs, Error{
				Field:   field("field"),
				Message: "update_field requires a field",
			})
		}
		_, hasValue := cfg["value"]
		if !hasValue && configString(cfg, "value_field") == "" {
			errs = append(errs, Error{
				Field:   field("value"),
				Message: "update_field requires a value or a value field",
			})
		}
		return errs

	case domain.ActionDelay:
		switch configString(cfg, "delay_type") {
		case "until_date":
			if configString(cfg, "date_field") == "" {
				return []Error{{
					Field:   field("date_field"),
					Message: "delay until_date requires a date field",
				}}
			}
		default: // fixed
			if configInt(cfg, "duration") < 1 {
				return []Error{{
					Field:   field("duration"),
					Message: "delay duration must be at least 1 second",
				}}
			}
		}
		return nil

	case domain.ActionCondition:
		if emptyConditions(cfg["conditions"]) {
			return []Error{{
				Field:   field("conditions"),
				Message: "condition requires at least one condition",
			}}
		}
		return nil

	case domain.ActionCreateRecord:
		if _, ok := cfg["module_id"]; !ok {
			return []Error{{
				Field:   field("module_id"),
				Message: "create_record requires a module",
			}}
		}
		return nil

	case domain.ActionMoveStage:
		if configString(cfg, "stage_id") == "" && configString(cfg, "stage_name") == "" {
			return []Error{{
				Field:   field("stage_id"),
				Message: "move_stage requires a stage id or a stage name",
			}}
		}
		return nil

	case domain.ActionAssignUser:
		switch configString(cfg, "assignment_type") {
		case "round_robin":
			if list, _ := cfg["user_pool"].([]any); len(list) == 0 {
				return []Error{{
					Field:   field("user_pool"),
					Message: "assign_user round_robin requires a user pool",
				}}
			}
		default: // specific
			if _, ok := cfg["user_id"]; !ok {
				return []Error{{
					Field:   field("user_id"),
					Message: "assign_user requires a user",
				}}
			}
		}
		return nil
	}

	return nil
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func emptyConditions(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case map[string]any:
		if list, ok := v["conditions"].([]any); ok {
			return len(list) == 0
		}
		return len(v) == 0
	default:
		return true
	}
}

func configString(cfg map[string]any, key string) string {
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return ""
}

func configInt(cfg map[string]any, key string) int {
	switch n := cfg[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
