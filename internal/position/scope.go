package position

import "fmt"

// Scope names a parent whose children carry positions
type Scope string

const (
	ScopePlanTemplate   Scope = "plan-templates"
	ScopeSprintTemplate Scope = "sprint-templates"
	ScopePlan           Scope = "plans"
	ScopeSprint         Scope = "sprints"
)

// Table describes where a scope's children live
type Table struct {
	Name        string
	ParentField string
	// ParentTable holds the parent rows, used to check the parent exists
	ParentTable string
}

var tables = map[Scope]Table{
	ScopePlanTemplate:   {Name: "sprint_templates", ParentField: "plan_template_id", ParentTable: "plan_templates"},
	ScopeSprintTemplate: {Name: "goal_templates", ParentField: "sprint_template_id", ParentTable: "sprint_templates"},
	ScopePlan:           {Name: "sprints", ParentField: "plan_id", ParentTable: "plans"},
	ScopeSprint:         {Name: "goals", ParentField: "sprint_id", ParentTable: "sprints"},
}

// ParseScope maps a route segment to a Scope
func ParseScope(s string) (Scope, error) {
	sc := Scope(s)
	if _, ok := tables[sc]; !ok {
		return "", fmt.Errorf("unknown scope %q", s)
	}
	return sc, nil
}

// Table returns the child table for the scope
func (s Scope) Table() Table {
	return tables[s]
}

// IsTemplate reports whether the scope belongs to the master hierarchy
func (s Scope) IsTemplate() bool {
	return s == ScopePlanTemplate || s == ScopeSprintTemplate
}
