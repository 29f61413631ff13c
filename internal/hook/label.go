package hook

import "path/filepath"

// ExtractToolLabel derives a short human-readable label from a tool's
// input. Tools without a known extraction (including MCP tools, which the
// view layer formats from the tool name) return an empty label so the UI
// can fall back to the tool name.
func ExtractToolLabel(toolName string, input map[string]any) string {
	if input == nil {
		return ""
	}
	str := func(key string) string {
		s, _ := input[key].(string)
		return s
	}

	switch toolName {
	case "Bash":
		if desc := str("description"); desc != "" {
			return desc
		}
		return str("command")
	case "Read", "Write", "Edit":
		return baseName(str("file_path"))
	case "NotebookEdit":
		return baseName(str("notebook_path"))
	case "Glob", "Grep":
		return str("pattern")
	case "WebFetch":
		return str("url")
	case "WebSearch":
		return str("query")
	case "Task":
		return str("description")
	case "Skill":
		return str("skill")
	}
	return ""
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
