package component

// Script binds a named behavior script to an entity. State persists across
// ticks and is owned by the scripting pass.
type Script struct {
	Name     string
	State    map[string]any
	Errors   int
	Disabled bool
}

var ScriptComponent = NewNamedComponent[Script]("script")
