package mailbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/oncallops/mailtriage/internal/config"
)

// IMAPSource fetches unread messages from an IMAP mailbox. Messages are
// marked \Seen via MarkHandled so the UNSEEN search never returns them
// again. The connection is established lazily and re-established after
// errors.
type IMAPSource struct {
	cfg config.MailboxConfig
	log *slog.Logger

	c *client.Client
}

// NewIMAPSource creates an IMAPSource. No connection is made until the
// first fetch.
func NewIMAPSource(cfg config.MailboxConfig, log *slog.Logger) *IMAPSource {
	if log == nil {
		log = slog.Default()
	}
	return &IMAPSource{cfg: cfg, log: log}
}

// IsConfigured reports whether IMAP credentials are present.
func (s *IMAPSource) IsConfigured() bool {
	return s.cfg.Server != "" && s.cfg.Username != "" && s.cfg.Password != ""
}

func (s *IMAPSource) connect() error {
	if s.c != nil {
		return nil
	}
	if !s.IsConfigured() {
		return fmt.Errorf("imap: server, username, or password not configured")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server, s.cfg.Port)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("imap: dialing %s: %w", addr, err)
	}
	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = c.Logout()
		return fmt.Errorf("imap: login: %w", err)
	}
	folder := s.cfg.Folder
	if folder == "" {
		folder = "INBOX"
	}
	if _, err := c.Select(folder, false); err != nil {
		_ = c.Logout()
		return fmt.Errorf("imap: selecting %s: %w", folder, err)
	}
	s.c = c
	s.log.Debug("imap: connected", "server", s.cfg.Server, "folder", folder)
	return nil
}

// drop discards the current connection so the next call reconnects.
func (s *IMAPSource) drop() {
	if s.c != nil {
		_ = s.c.Logout()
		s.c = nil
	}
}

// FetchUnprocessed returns all unseen messages in the configured folder.
func (s *IMAPSource) FetchUnprocessed(ctx context.Context) ([]RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.connect(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		s.drop()
		return nil, fmt.Errorf("imap: UNSEEN search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqset, items, messages)
	}()

	var raws []RawMessage
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			s.log.Warn("imap: fetched message has no body section", "uid", msg.Uid)
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			s.log.Warn("imap: reading message body", "uid", msg.Uid, "error", err)
			continue
		}
		raws = append(raws, RawMessage{
			DeliveryID: strconv.FormatUint(uint64(msg.Uid), 10),
			Data:       data,
		})
	}
	if err := <-done; err != nil {
		s.drop()
		return raws, fmt.Errorf("imap: fetch: %w", err)
	}
	return raws, nil
}

// MarkHandled flags one message \Seen so it is not fetched again.
func (s *IMAPSource) MarkHandled(ctx context.Context, deliveryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.connect(); err != nil {
		return err
	}
	uid, err := strconv.ParseUint(deliveryID, 10, 32)
	if err != nil {
		return fmt.Errorf("imap: invalid delivery id %q: %w", deliveryID, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		s.drop()
		return fmt.Errorf("imap: marking uid %d seen: %w", uid, err)
	}
	return nil
}

// Close logs out of the IMAP session.
func (s *IMAPSource) Close() error {
	if s.c == nil {
		return nil
	}
	err := s.c.Logout()
	s.c = nil
	return err
}
