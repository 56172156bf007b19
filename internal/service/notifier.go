package service

import (
	"context"
	"fmt"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/store"

	"github.com/google/uuid"
)

// Notifier delivers a system message from one user to another about a listing
type Notifier interface {
	Notify(ctx context.Context, listingID, fromUserID, toUserID, text string) error
}

// MessageNotifier persists notifications as messages
type MessageNotifier struct {
	messages store.MessageRepository
}

// NewMessageNotifier creates a notifier that writes to messages
func NewMessageNotifier(messages store.MessageRepository) *MessageNotifier {
	return &MessageNotifier{messages: messages}
}

// Notify stores text as an unread message
func (n *MessageNotifier) Notify(ctx context.Context, listingID, fromUserID, toUserID, text string) error {
	return n.Deliver(ctx, uuid.New().String(), listingID, fromUserID, toUserID, text)
}

// Deliver stores a notification under a caller chosen id. Delivering the
// same id twice keeps a single message.
func (n *MessageNotifier) Deliver(ctx context.Context, id, listingID, fromUserID, toUserID, text string) error {
	msg := &models.Message{
		ID:         id,
		ListingID:  listingID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Content:    text,
	}
	if err := n.messages.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

func purchaseRequestText(listing *models.Listing) string {
	return fmt.Sprintf("I'm interested in buying \"%s\" for $%s. Please let me know if you'd like to proceed with the sale.",
		listing.Title, listing.Price.StringFixed(2))
}

func acceptedText(listing *models.Listing) string {
	return fmt.Sprintf("Great news! I've accepted your purchase request for \"%s\". The item is now marked as sold. Please contact me to arrange pickup/payment.",
		listing.Title)
}

func rejectedText(listing *models.Listing) string {
	return fmt.Sprintf("I'm sorry, but I've decided not to proceed with the sale of \"%s\" at this time. The listing is now available again for other buyers.",
		listing.Title)
}
