package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chat-service/model"
)

const disconnectKeyPrefix = "disconnect:"

// Gorm is the persistent Store: one nodes row per document, subtree reads by
// path prefix. Disconnect actions live in Redis so that any instance can fire
// a registration made by another.
type Gorm struct {
	db  *gorm.DB
	rdb *redis.Client
	now func() time.Time
}

func NewGorm(db *gorm.DB, rdb *redis.Client) *Gorm {
	return &Gorm{db: db, rdb: rdb, now: time.Now}
}

func (g *Gorm) GetDoc(ctx context.Context, path string, out any) (bool, error) {
	var node model.Node
	err := g.db.WithContext(ctx).First(&node, "path = ?", path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(node.Doc), out); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Gorm) SetDoc(ctx context.Context, path string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	node := model.Node{Path: path, Doc: string(raw), UpdatedAt: g.now()}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).
		Create(&node).Error
}

func (g *Gorm) Update(ctx context.Context, path string, fields Fields) error {
	fields = resolveServerValues(fields, g.now())
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var node model.Node
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&node, "path = ?", path).Error
		doc := map[string]any{}
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Merging into a missing node creates it, same as the tree
			// store the service fronted before.
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(node.Doc), &doc); err != nil {
				return err
			}
		}
		for k, v := range fields {
			doc[k] = v
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		node.Path = path
		node.Doc = string(raw)
		node.UpdatedAt = g.now()
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).Create(&node).Error
	})
}

func (g *Gorm) Exists(ctx context.Context, path string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.Node{}).
		Where("path = ? OR path LIKE ?", path, path+"/%").
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (g *Gorm) Push(_ context.Context, _ string) (string, error) {
	// Keys are minted client-side, no round trip needed; uniqueness comes
	// from the id scheme itself.
	return NewPushID(g.now()), nil
}

func (g *Gorm) Subtree(ctx context.Context, path string) (*Snapshot, error) {
	var nodes []model.Node
	err := g.db.WithContext(ctx).
		Where("path = ? OR path LIKE ?", path, path+"/%").
		Order("path").
		Find(&nodes).Error
	if err != nil {
		return nil, err
	}
	rows := make([]snapshotRow, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, snapshotRow{path: n.Path, doc: json.RawMessage(n.Doc)})
	}
	return assemble(path, rows), nil
}

func (g *Gorm) RegisterDisconnectAction(ctx context.Context, session, path string, fields Fields) error {
	raw, err := json.Marshal(disconnectAction{Path: path, Fields: fields})
	if err != nil {
		return err
	}
	return g.rdb.Set(ctx, disconnectKeyPrefix+session, raw, 0).Err()
}

func (g *Gorm) CancelDisconnectActions(ctx context.Context, session string) error {
	return g.rdb.Del(ctx, disconnectKeyPrefix+session).Err()
}

func (g *Gorm) FireDisconnectActions(ctx context.Context, session string) error {
	raw, err := g.rdb.GetDel(ctx, disconnectKeyPrefix+session).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	var action disconnectAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return err
	}
	return g.Update(ctx, action.Path, action.Fields)
}
