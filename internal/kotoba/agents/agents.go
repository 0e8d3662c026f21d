// Package agents registers the built-in agents: birthday book, gift log,
// bookmarks, habit tracker, expense book and backup settings. Each agent is
// a set of trigger rules, field schemas and handlers bound into a
// commands.Registry.
package agents

import (
	"fmt"
	"sort"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

// Env carries what handlers need beyond the store.
type Env struct {
	// Clock supplies "today" in the user's timezone.
	Clock func() time.Time
}

func (e Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

// Agent is a built-in agent definition.
type Agent struct {
	Name       string
	Collection string
	entries    func(env Env) []commands.Entry
}

var builtin = []Agent{
	{Name: "birthday", Collection: "birthdays", entries: birthdayEntries},
	{Name: "gift", Collection: "gifts", entries: giftEntries},
	{Name: "bookmark", Collection: "bookmarks", entries: bookmarkEntries},
	{Name: "habit", Collection: "habits", entries: habitEntries},
	{Name: "expense", Collection: "expenses", entries: expenseEntries},
	{Name: "backup", Collection: "backup_settings", entries: backupEntries},
}

// Names lists the built-in agents in their default order.
func Names() []string {
	out := make([]string, len(builtin))
	for i, a := range builtin {
		out[i] = a.Name
	}
	return out
}

// Lookup returns the built-in agent called name.
func Lookup(name string) (Agent, bool) {
	for _, a := range builtin {
		if a.Name == name {
			return a, true
		}
	}
	return Agent{}, false
}

// Registry builds and seals the registry of agent name.
func Registry(name string, env Env) (*commands.Registry, error) {
	a, ok := Lookup(name)
	if !ok {
		known := Names()
		sort.Strings(known)
		return nil, fmt.Errorf("unknown agent %q (known: %v)", name, known)
	}
	reg := commands.NewRegistry(a.Name)
	for _, e := range a.entries(env) {
		if err := reg.Register(e); err != nil {
			return nil, err
		}
	}
	if err := reg.Seal(); err != nil {
		return nil, err
	}
	return reg, nil
}

// crud returns the generic handlers for collection.
func (e Env) crud(collection string) CRUD {
	return CRUD{Collection: collection, Clock: e.now}
}

// idField is the "id" field every by-id intent takes from its trigger
// capture or an "ID:" label.
var idField = extract.Field{Name: "id", Labels: []string{"ID", "番号"}, Kind: normalize.KindInteger, Required: true}

// IDField returns the schema of the record "id" field, for agents defined
// outside this package.
func IDField() extract.Field { return idField }
