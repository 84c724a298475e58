// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package indexer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/umanity/event"
	"github.com/blinklabs-io/umanity/ledger"
	"github.com/blinklabs-io/umanity/program/pool"
	"github.com/blinklabs-io/umanity/program/tips"
)

const (
	// RewardUnit is the amount of native value that earns PointsPerUnit points
	RewardUnit    uint64 = 1_000_000_000
	PointsPerUnit uint64 = 1000
	// WelcomeBonus is granted once on registration
	WelcomeBonus uint64 = 50
)

// EventTypes lists the ledger events the indexer consumes
var EventTypes = []event.EventType{
	pool.PoolInitializedEventType,
	pool.DonationEventType,
	pool.WithdrawalEventType,
	pool.PoolUpdatedEventType,
	tips.UserRegisteredEventType,
	tips.TipSentEventType,
	tips.ProfileUpdatedEventType,
}

var memoryDbCounter atomic.Uint64

// Indexer maintains an off-ledger sqlite view of committed ledger events
type Indexer struct {
	db           *gorm.DB
	logger       *slog.Logger
	eventBus     *event.EventBus
	dataDir      string
	subscription event.EventSubscriberId
	mu           sync.Mutex
	// HandleEvent may also be called directly from several goroutines
	writeMu sync.Mutex
}

func New(opts ...IndexerOptionFunc) (*Indexer, error) {
	i := &Indexer{}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	var err error
	if i.dataDir == "" {
		// Each in-memory index gets its own named database
		i.db, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf(
					"file:indexer%d?mode=memory&cache=shared",
					memoryDbCounter.Add(1),
				),
			),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
		sqlDb, err := i.db.DB()
		if err != nil {
			return nil, err
		}
		// Shared cache in-memory databases lock at the table level
		sqlDb.SetMaxOpenConns(1)
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(i.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(i.dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dbPath := filepath.Join(i.dataDir, "indexer.sqlite")
		connOpts := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		i.db, err = gorm.Open(
			sqlite.Open(fmt.Sprintf("file:%s?%s", dbPath, connOpts)),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
	}
	if err := i.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	for _, model := range MigrateModels {
		i.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "indexer",
		)
		if err := i.db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// DB returns the underlying GORM database handle
func (i *Indexer) DB() *gorm.DB {
	return i.db
}

// Start subscribes the indexer to ledger events. Every event type shares one
// subscription, so a pool is always indexed before the donations made to it
func (i *Indexer) Start(eventBus *event.EventBus) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.eventBus != nil {
		return
	}
	i.eventBus = eventBus
	i.subscription = eventBus.SubscribeFuncTypes(EventTypes, i.handleBusEvent)
}

// Stop unsubscribes the indexer from ledger events
func (i *Indexer) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.eventBus == nil {
		return
	}
	for _, eventType := range EventTypes {
		i.eventBus.Unsubscribe(eventType, i.subscription)
	}
	i.eventBus = nil
	i.subscription = 0
}

// Close stops event consumption and closes the database
func (i *Indexer) Close() error {
	i.Stop()
	sqlDb, err := i.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDb.Close()
}

func (i *Indexer) handleBusEvent(evt event.Event) {
	if err := i.HandleEvent(evt); err != nil {
		i.logger.Error(
			fmt.Sprintf("failed to index event: %s", err),
			"component", "indexer",
			"type", evt.Type,
		)
	}
}

// RewardPoints returns the points earned for moving amount
func RewardPoints(amount uint64) uint64 {
	return amount / (RewardUnit / PointsPerUnit)
}

// HandleEvent applies a single ledger event to the index. Unknown event
// payloads are ignored
func (i *Indexer) HandleEvent(evt event.Event) error {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()
	switch data := evt.Data.(type) {
	case pool.PoolInitializedEvent:
		return i.db.Create(&Pool{
			Address:   data.Pool.String(),
			Authority: data.Authority.String(),
			Name:      data.Name,
			Emoji:     data.Emoji,
			PoolType:  uint8(data.PoolType),
			CreatedAt: data.Timestamp,
			IsActive:  true,
		}).Error
	case pool.DonationEvent:
		return i.db.Transaction(func(tx *gorm.DB) error {
			return i.indexDonation(tx, &data)
		})
	case pool.WithdrawalEvent:
		return i.db.Transaction(func(tx *gorm.DB) error {
			return i.indexWithdrawal(tx, &data)
		})
	case pool.PoolUpdatedEvent:
		return i.db.Model(&Pool{}).
			Where("address = ?", data.Pool.String()).
			Updates(map[string]any{
				"description": data.Description,
				"emoji":       data.Emoji,
				"is_active":   data.IsActive,
			}).Error
	case tips.UserRegisteredEvent:
		return i.db.Transaction(func(tx *gorm.DB) error {
			return i.indexRegistration(tx, &data)
		})
	case tips.TipSentEvent:
		return i.db.Transaction(func(tx *gorm.DB) error {
			return i.indexTip(tx, &data)
		})
	case tips.ProfileUpdatedEvent:
		return i.db.Model(&Participant{}).
			Where("address = ?", data.User.String()).
			Updates(map[string]any{
				"display_name": data.DisplayName,
				"is_active":    data.IsActive,
			}).Error
	}
	return nil
}

func participant(tx *gorm.DB, addr ledger.Address) (*Participant, error) {
	ret := &Participant{}
	result := tx.Where(Participant{Address: addr.String()}).
		Attrs(Participant{IsActive: true}).
		FirstOrCreate(ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (i *Indexer) indexDonation(tx *gorm.DB, data *pool.DonationEvent) error {
	if err := tx.Create(&Donation{
		Record:       data.Record.String(),
		Pool:         data.Pool.String(),
		PoolName:     data.PoolName,
		Donor:        data.Donor.String(),
		Timestamp:    data.Timestamp,
		Amount:       Uint64(data.Amount),
		DonationType: uint8(data.DonationType),
	}).Error; err != nil {
		return err
	}
	donor, err := participant(tx, data.Donor)
	if err != nil {
		return err
	}
	donor.TotalDonated = Uint64(saturatingAdd(uint64(donor.TotalDonated), data.Amount))
	donor.DonationCount++
	donor.RewardPoints = saturatingAdd(donor.RewardPoints, RewardPoints(data.Amount))
	if err := tx.Save(donor).Error; err != nil {
		return err
	}
	var p Pool
	result := tx.Where("address = ?", data.Pool.String()).Limit(1).Find(&p)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Pools created before the indexer started are not tracked
		return nil
	}
	p.TotalDonated = Uint64(saturatingAdd(uint64(p.TotalDonated), data.Amount))
	p.DonationCount++
	return tx.Save(&p).Error
}

func (i *Indexer) indexWithdrawal(tx *gorm.DB, data *pool.WithdrawalEvent) error {
	if err := tx.Create(&Withdrawal{
		Pool:      data.Pool.String(),
		Authority: data.Authority.String(),
		Recipient: data.Recipient.String(),
		Timestamp: data.Timestamp,
		Amount:    Uint64(data.Amount),
	}).Error; err != nil {
		return err
	}
	var p Pool
	result := tx.Where("address = ?", data.Pool.String()).Limit(1).Find(&p)
	if result.Error != nil || result.RowsAffected == 0 {
		return result.Error
	}
	p.TotalWithdrawn = Uint64(saturatingAdd(uint64(p.TotalWithdrawn), data.Amount))
	return tx.Save(&p).Error
}

func (i *Indexer) indexRegistration(tx *gorm.DB, data *tips.UserRegisteredEvent) error {
	user, err := participant(tx, data.User)
	if err != nil {
		return err
	}
	if user.Registered {
		return nil
	}
	user.Registered = true
	user.Username = data.Username
	user.DisplayName = data.DisplayName
	user.RegisteredAt = data.Timestamp
	user.RewardPoints = saturatingAdd(user.RewardPoints, WelcomeBonus)
	return tx.Save(user).Error
}

func (i *Indexer) indexTip(tx *gorm.DB, data *tips.TipSentEvent) error {
	if err := tx.Create(&Tip{
		Record:    data.Record.String(),
		Sender:    data.Sender.String(),
		Recipient: data.Recipient.String(),
		Message:   data.Message,
		Timestamp: data.Timestamp,
		Amount:    Uint64(data.Amount),
	}).Error; err != nil {
		return err
	}
	sender, err := participant(tx, data.Sender)
	if err != nil {
		return err
	}
	sender.TotalTipped = Uint64(saturatingAdd(uint64(sender.TotalTipped), data.Amount))
	sender.TipCountSent++
	sender.RewardPoints = saturatingAdd(sender.RewardPoints, RewardPoints(data.Amount))
	if err := tx.Save(sender).Error; err != nil {
		return err
	}
	recipient, err := participant(tx, data.Recipient)
	if err != nil {
		return err
	}
	recipient.TotalReceived = Uint64(saturatingAdd(uint64(recipient.TotalReceived), data.Amount))
	recipient.TipCountReceived++
	return tx.Save(recipient).Error
}
