package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/jimaku/internal/discord"
)

// Client posts messages over the Discord REST API. No gateway connection is opened because the
// mirror only writes to a channel.
type Client struct {
	session *discordgo.Session
}

func NewClient(token string) (discordpkg.Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Client{session: s}, nil
}

func (c *Client) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send discord message to %s: %w", channelID, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.session.Close()
}
