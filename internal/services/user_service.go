package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

// UserService covers profile changes, the user's encrypted private data and
// keychain, and account removal.
type UserService struct {
	pool        *pgxpool.Pool
	users       repositories.UserRepository
	rooms       repositories.RoomRepository
	members     repositories.MemberRepository
	privateData repositories.PrivateUserDataRepository
	keychain    repositories.KeychainRepository
	tracker     *synclog.Tracker
	store       synclog.Store
}

func NewUserService(
	pool *pgxpool.Pool,
	users repositories.UserRepository,
	rooms repositories.RoomRepository,
	members repositories.MemberRepository,
	privateData repositories.PrivateUserDataRepository,
	keychain repositories.KeychainRepository,
	tracker *synclog.Tracker,
	store synclog.Store,
) *UserService {
	return &UserService{
		pool:        pool,
		users:       users,
		rooms:       rooms,
		members:     members,
		privateData: privateData,
		keychain:    keychain,
		tracker:     tracker,
		store:       store,
	}
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

type UpdateProfileRequest struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
	PublicKey   *string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.PublicKey != nil {
		user.PublicKey = req.PublicKey
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.users.WithTx(tx).Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.UserUpdated{User: user}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

type PutPrivateDataRequest struct {
	Key        string
	Ciphertext []byte
	Nonce      []byte
	// Version is the client's last known version; the save fails with
	// ErrVersionConflict when another device wrote in between.
	Version int64
}

func (s *UserService) PutPrivateData(ctx context.Context, userID int64, req PutPrivateDataRequest) (*models.PrivateUserData, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	data := &models.PrivateUserData{
		UserID:     userID,
		Key:        req.Key,
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
		Version:    req.Version,
	}
	if err := s.privateData.WithTx(tx).Upsert(ctx, data); err != nil {
		return nil, err
	}
	if err := s.tracker.Dispatch(ctx, tx, events.PrivateUserDataSaved{Data: data, User: user}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return data, nil
}

func (s *UserService) DeletePrivateData(ctx context.Context, userID int64, key string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	data, err := s.privateData.GetByKey(ctx, userID, key)
	if err != nil {
		return fmt.Errorf("failed to get private data: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.tracker.Dispatch(ctx, tx, events.PrivateUserDataDeleting{Data: data, User: user}); err != nil {
		return err
	}
	if err := s.privateData.WithTx(tx).Delete(ctx, data.ID); err != nil {
		return fmt.Errorf("failed to delete private data: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type PutKeychainValueRequest struct {
	Key        string
	Ciphertext []byte
	Nonce      []byte
}

func (s *UserService) PutKeychainValue(ctx context.Context, userID int64, req PutKeychainValueRequest) (*models.UserKeychainValue, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	value := &models.UserKeychainValue{
		UserID:     userID,
		Key:        req.Key,
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
	}
	if err := s.keychain.WithTx(tx).Upsert(ctx, value); err != nil {
		return nil, fmt.Errorf("failed to upsert keychain value: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.KeychainValueSaved{Value: value, User: user}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return value, nil
}

func (s *UserService) DeleteKeychainValue(ctx context.Context, userID int64, key string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	value, err := s.keychain.GetByKey(ctx, userID, key)
	if err != nil {
		return fmt.Errorf("failed to get keychain value: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.tracker.Dispatch(ctx, tx, events.KeychainValueDeleting{Value: value, User: user}); err != nil {
		return err
	}
	if err := s.keychain.WithTx(tx).Delete(ctx, value.ID); err != nil {
		return fmt.Errorf("failed to delete keychain value: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteAccount removes the user. Former room mates get removal entries for
// each of the user's memberships before the rows cascade away, and the
// user's own feed plus every entry pointing at them is wiped.
func (s *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	memberships, err := s.members.ListForUserRooms(ctx, userID, nil, 0, math.MaxInt64)
	if err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, member := range memberships {
		if member.UserID != userID {
			continue
		}
		room, err := s.rooms.GetByID(ctx, member.RoomID)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}
		if err := s.tracker.Dispatch(ctx, tx, events.MemberRemoved{Member: member, Room: room, User: user}); err != nil {
			return err
		}
	}

	if err := s.users.WithTx(tx).Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := s.store.DeleteAllForUser(ctx, tx, userID); err != nil {
		return fmt.Errorf("failed to wipe sync log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
