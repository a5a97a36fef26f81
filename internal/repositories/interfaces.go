package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when optimistic locking fails.
var ErrVersionConflict = errors.New("version conflict: data was modified concurrently")

type UserRepository interface {
	WithTx(q database.Querier) UserRepository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	// ListPeers returns the distinct users sharing at least one room with
	// the given user, the user included, ordered by id.
	ListPeers(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.User, error)
	CountPeers(ctx context.Context, userID int64, roomID *int64) (int64, error)
}

type RoomRepository interface {
	WithTx(q database.Querier) RoomRepository
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id int64) (*models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Room, error)
	CountForUser(ctx context.Context, userID int64, roomID *int64) (int64, error)
}

type MemberRepository interface {
	WithTx(q database.Querier) MemberRepository
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	GetByRoomAndUser(ctx context.Context, roomID, userID int64) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, id int64) error
	ListForRoom(ctx context.Context, roomID int64) ([]*models.Member, error)
	// ListUsersForRoom resolves the room's current member users, the raw
	// material of most audience computations.
	ListUsersForRoom(ctx context.Context, roomID int64) ([]*models.User, error)
	ListForUserRooms(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Member, error)
	CountForUserRooms(ctx context.Context, userID int64, roomID *int64) (int64, error)
}

type InvitationRepository interface {
	WithTx(q database.Querier) InvitationRepository
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByID(ctx context.Context, id int64) (*models.Invitation, error)
	GetByToken(ctx context.Context, token uuid.UUID) (*models.Invitation, error)
	Update(ctx context.Context, invitation *models.Invitation) error
	ListOpenForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.Invitation, error)
	CountOpenForUser(ctx context.Context, userID int64) (int64, error)
}

type MessageRepository interface {
	WithTx(q database.Querier) MessageRepository
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	Update(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, id int64) error
	ListForUserRooms(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Message, error)
	CountForUserRooms(ctx context.Context, userID int64, roomID *int64) (int64, error)
}

type PrivateUserDataRepository interface {
	WithTx(q database.Querier) PrivateUserDataRepository
	GetByID(ctx context.Context, id int64) (*models.PrivateUserData, error)
	GetByKey(ctx context.Context, userID int64, key string) (*models.PrivateUserData, error)
	Upsert(ctx context.Context, data *models.PrivateUserData) error
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.PrivateUserData, error)
	CountForUser(ctx context.Context, userID int64) (int64, error)
}

type KeychainRepository interface {
	WithTx(q database.Querier) KeychainRepository
	GetByID(ctx context.Context, id int64) (*models.UserKeychainValue, error)
	GetByKey(ctx context.Context, userID int64, key string) (*models.UserKeychainValue, error)
	Upsert(ctx context.Context, value *models.UserKeychainValue) error
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.UserKeychainValue, error)
	CountForUser(ctx context.Context, userID int64) (int64, error)
}

type AiModelRepository interface {
	GetByID(ctx context.Context, id int64) (*models.AiModel, error)
	ListActive(ctx context.Context, offset, limit int64) ([]*models.AiModel, error)
	CountActive(ctx context.Context) (int64, error)
}

type SystemPromptRepository interface {
	GetByID(ctx context.Context, id int64) (*models.SystemPrompt, error)
	List(ctx context.Context, offset, limit int64) ([]*models.SystemPrompt, error)
	Count(ctx context.Context) (int64, error)
}
