package agents

import (
	"context"
	"fmt"

	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

// Backup defaults reported by status before anything is set.
const (
	DefaultBackupAuto     = "false"
	DefaultBackupInterval = "1440m"
)

func backupEntries(env Env) []commands.Entry {
	c := env.crud("backup_settings")
	setFields := []extract.Field{
		{
			Name: "auto", Labels: []string{"自動", "auto"}, Kind: normalize.KindEnum,
			EnumValues: []string{"true", "false"},
			Synonyms: map[string]string{
				"有効": "true", "オン": "true", "enable": "true", "enabled": "true", "on": "true", "yes": "true",
				"無効": "false", "オフ": "false", "disable": "false", "disabled": "false", "off": "false", "no": "false",
			},
		},
		{Name: "interval", Labels: []string{"間隔", "interval"}, Kind: normalize.KindDuration,
			Min: extract.Int64(5), Max: extract.Int64(7 * 24 * 60)},
	}
	return []commands.Entry{
		{
			Rule:    intent.Rule{Intent: "status", Patterns: []string{`バックアップ状態`, `バックアップ確認`, `backup\s+status`}},
			Handler: backupStatus(c),
		},
		{
			Rule:    intent.Rule{Intent: "set", Patterns: []string{`バックアップ設定`, `backup\s+set`}},
			Fields:  setFields,
			Handler: backupSet(c, setFields),
		},
	}
}

// backupSet keeps a single settings record, creating it on first use.
func backupSet(c CRUD, schema []extract.Field) commands.Handler {
	return func(ctx context.Context, f commands.Fields, store storage.Storage) (commands.Reply, error) {
		if len(f) == 0 {
			return commands.Reply{}, commands.Invalid("", "give 自動/auto or 間隔/interval")
		}
		if err := checkBounds(schema, f); err != nil {
			return commands.Reply{}, err
		}
		values := f.Canonical()
		recs, err := store.Query(ctx, c.Collection, storage.Filter{Limit: 1})
		if err != nil {
			return commands.Reply{}, err
		}

		var settings map[string]string
		if len(recs) == 0 {
			settings = map[string]string{"auto": DefaultBackupAuto, "interval": DefaultBackupInterval}
			for k, v := range values {
				settings[k] = v
			}
			if _, err := store.Create(ctx, c.Collection, settings); err != nil {
				return commands.Reply{}, err
			}
		} else {
			if _, err := store.Update(ctx, recs[0].ID, values); err != nil {
				return commands.Reply{}, err
			}
			settings = recs[0].Fields
			for k, v := range values {
				settings[k] = v
			}
		}
		return commands.Reply{
			Message: fmt.Sprintf("backup auto=%s interval=%s", settings["auto"], settings["interval"]),
			Data: map[string]any{
				DataAction: ActionUpdated,
				DataRecord: settings,
			},
		}, nil
	}
}

func backupStatus(c CRUD) commands.Handler {
	return func(ctx context.Context, _ commands.Fields, store storage.Storage) (commands.Reply, error) {
		recs, err := store.Query(ctx, c.Collection, storage.Filter{Limit: 1})
		if err != nil {
			return commands.Reply{}, err
		}
		settings := map[string]string{"auto": DefaultBackupAuto, "interval": DefaultBackupInterval}
		configured := len(recs) > 0
		if configured {
			for k, v := range recs[0].Fields {
				settings[k] = v
			}
		}
		return commands.Reply{
			Message: fmt.Sprintf("backup auto=%s interval=%s", settings["auto"], settings["interval"]),
			Data: map[string]any{
				DataAction:   ActionStatus,
				DataRecord:   settings,
				"configured": configured,
			},
		}, nil
	}
}
