package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/metrics"
)

// RelationSpec describes one unique (user, target) relation.
// T is the target model, R the relation model stored in its own table.
type RelationSpec[T any, R any] struct {
	// Name labels logs and metrics
	Name string
	// TargetColumn references the target in the relation table
	TargetColumn string
	// Load fetches the target, returning gorm.ErrRecordNotFound when absent
	Load func(ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error)
	// New builds the relation row
	New func(userID, targetID uuid.UUID) *R
	// Validate runs before any query, may be nil
	Validate func(userID, targetID uuid.UUID) error

	TargetMissing string
	Exists        string
	Missing       string
}

// Toggle adds and removes one user's membership in a relation
type Toggle[T any, R any] struct {
	db   *gorm.DB
	spec RelationSpec[T, R]
	log  logrus.FieldLogger
}

func NewToggle[T any, R any](db *gorm.DB, spec RelationSpec[T, R], log logrus.FieldLogger) *Toggle[T, R] {
	return &Toggle[T, R]{
		db:   db,
		spec: spec,
		log:  log.WithFields(logrus.Fields{"component": "toggle", "relation": spec.Name}),
	}
}

func (t *Toggle[T, R]) key(userID, targetID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{"user_id": userID, t.spec.TargetColumn: targetID}
}

func (t *Toggle[T, R]) target(ctx context.Context, id uuid.UUID) (*T, error) {
	target, err := t.spec.Load(ctx, t.db.WithContext(ctx), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound(t.spec.TargetMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s target: %w", t.spec.Name, err)
	}
	return target, nil
}

// Add creates the relation and returns its target.
// A relation that already exists, or is inserted concurrently, yields ErrAlreadyExists.
func (t *Toggle[T, R]) Add(ctx context.Context, userID, targetID uuid.UUID) (*T, error) {
	target, err := t.add(ctx, userID, targetID)
	t.observe("add", err)
	return target, err
}

func (t *Toggle[T, R]) add(ctx context.Context, userID, targetID uuid.UUID) (*T, error) {
	if t.spec.Validate != nil {
		if err := t.spec.Validate(userID, targetID); err != nil {
			return nil, err
		}
	}

	target, err := t.target(ctx, targetID)
	if err != nil {
		return nil, err
	}

	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(new(R)).Where(t.key(userID, targetID)).Count(&count).Error; err != nil {
			return fmt.Errorf("check %s: %w", t.spec.Name, err)
		}
		if count > 0 {
			return alreadyExists(t.spec.Exists)
		}

		if err := tx.Omit(clause.Associations).Create(t.spec.New(userID, targetID)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return alreadyExists(t.spec.Exists)
			}
			return fmt.Errorf("create %s: %w", t.spec.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.log.WithFields(logrus.Fields{"user_id": userID, "target_id": targetID}).Debug("relation added")
	return target, nil
}

// Remove deletes the relation. A relation that does not exist yields ErrRelationNotFound.
func (t *Toggle[T, R]) Remove(ctx context.Context, userID, targetID uuid.UUID) error {
	err := t.remove(ctx, userID, targetID)
	t.observe("remove", err)
	return err
}

func (t *Toggle[T, R]) remove(ctx context.Context, userID, targetID uuid.UUID) error {
	if _, err := t.target(ctx, targetID); err != nil {
		return err
	}

	res := t.db.WithContext(ctx).Where(t.key(userID, targetID)).Delete(new(R))
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", t.spec.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return relationNotFound(t.spec.Missing)
	}

	t.log.WithFields(logrus.Fields{"user_id": userID, "target_id": targetID}).Debug("relation removed")
	return nil
}

func (t *Toggle[T, R]) observe(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	if outcome == KindInternal.String() {
		t.log.WithError(err).WithField("action", action).Error("toggle failed")
	}
	metrics.ToggleOperations.WithLabelValues(t.spec.Name, action, outcome).Inc()
}
