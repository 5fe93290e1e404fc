package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// dmSession is the slice of discordgo.Session the notifier needs.
type dmSession interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier delivers the issuance DM over the Discord REST API.
type Notifier struct {
	session    dmSession
	gatewayURL string
	logger     *slog.Logger
}

func NewNotifier(session dmSession, gatewayURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		session:    session,
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		logger:     logger,
	}
}

// NotifyArtifactReady opens (or reuses) the member's DM channel and sends
// the ready message with a link to the published artifact.
func (n *Notifier) NotifyArtifactReady(ctx context.Context, memberID id.MemberID, txID id.TransactionID) error {
	channel, err := n.session.UserChannelCreate(memberID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "open dm channel")
	}

	message := fmt.Sprintf("Your NFT is ready! View it at %s/%s", n.gatewayURL, txID)
	if _, err := n.session.ChannelMessageSend(channel.ID, message, discordgo.WithContext(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "send dm")
	}

	n.logger.InfoContext(ctx, "member notified", "member_id", memberID, "tx_id", txID)
	return nil
}
