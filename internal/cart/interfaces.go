package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindActiveBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	Create(ctx context.Context, record *models.Cart) (*models.Cart, error)
	UpdateDelivery(ctx context.Context, record *models.Cart) error
	AppendLine(ctx context.Context, line *models.CartLine) error
	UpdateLine(ctx context.Context, line *models.CartLine) error
	DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) (bool, error)
	DeleteLines(ctx context.Context, cartID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.CartStatus) (bool, error)
}
