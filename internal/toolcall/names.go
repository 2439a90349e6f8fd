package toolcall

import "strings"

const functionPrefix = "functions."

// editorTools maps the function identifiers models emit to editor tool names.
var editorTools = map[string]string{
	// Files
	"functions.peek_file_at_path":      "read_file",
	"functions.read_file":              "read_file",
	"functions.create_file":            "create_file",
	"functions.insert_edit_into_file":  "insert_edit_into_file",
	"functions.replace_string_in_file": "replace_string_in_file",
	"functions.edit_file":              "replace_string_in_file",

	// Directories
	"functions.list_directory":   "list_dir",
	"functions.list_files":       "file_search",
	"functions.search_files":     "file_search",
	"functions.create_directory": "create_directory",
	"functions.create_folder":    "create_directory",

	// Terminal
	"functions.execute_command": "run_in_terminal",
	"functions.run_command":     "run_in_terminal",
	"functions.terminal":        "run_in_terminal",

	// Search
	"functions.search_in_file":  "grep_search",
	"functions.search_text":     "grep_search",
	"functions.semantic_search": "semantic_search",

	// Web
	"functions.fetch_webpage": "fetch_webpage",
	"functions.open_browser":  "open_simple_browser",

	// Workspace
	"functions.get_errors": "get_errors",
	"functions.compile":    "create_and_run_task",
	"functions.run_task":   "create_and_run_task",
}

// MapName returns the editor tool name for a model function name. Unknown
// names lose the "functions." prefix and are lower-cased.
func MapName(name string) string {
	if mapped, ok := editorTools[name]; ok {
		return mapped
	}

	return strings.ToLower(strings.TrimPrefix(name, functionPrefix))
}

// CallID returns the numeric suffix of a "name:n" call id, or id itself when
// there is none.
func CallID(id string) string {
	if i := strings.LastIndexByte(id, ':'); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}

	return id
}

// Mapped returns a copy of c with Name translated by MapName.
func (c Call) Mapped() Call {
	c.Name = MapName(c.Name)
	return c
}
