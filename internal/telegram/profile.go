package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/gotd/td/tg"
)

// profileAPI is the subset of [tg.Client] used to read and write the profile.
type profileAPI interface {
	UsersGetFullUser(ctx context.Context, id tg.InputUserClass) (*tg.UsersUserFull, error)
	UsersGetUsers(ctx context.Context, id []tg.InputUserClass) ([]tg.UserClass, error)
	AccountUpdateProfile(ctx context.Context, request *tg.AccountUpdateProfileRequest) (tg.UserClass, error)
	AccountUpdateEmojiStatus(ctx context.Context, status tg.EmojiStatusClass) (bool, error)
}

// Profile reads and writes the logged in user's bio and emoji status.
type Profile struct {
	api     profileAPI
	timeout time.Duration
}

func newProfile(api profileAPI, timeout time.Duration) *Profile {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Profile{api: api, timeout: timeout}
}

// ReadBio returns the "about" text of the current user.
func (p *Profile) ReadBio(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	full, err := p.api.UsersGetFullUser(ctx, &tg.InputUserSelf{})
	if err != nil {
		return "", remote("get full user", err)
	}
	return full.FullUser.About, nil
}

// WriteBio replaces the "about" text of the current user.
func (p *Profile) WriteBio(ctx context.Context, bio string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &tg.AccountUpdateProfileRequest{}
	req.SetAbout(bio)
	if _, err := p.api.AccountUpdateProfile(ctx, req); err != nil {
		return remote("update profile", err)
	}
	return nil
}

// ReadEmojiStatus returns the custom emoji document id of the current status, or 0 when none is set.
func (p *Profile) ReadEmojiStatus(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	users, err := p.api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}})
	if err != nil {
		return 0, remote("get users", err)
	}
	if len(users) == 0 {
		return 0, remote("get users", fmt.Errorf("empty response"))
	}

	user, ok := users[0].(*tg.User)
	if !ok {
		return 0, remote("get users", fmt.Errorf("unexpected user type %T", users[0]))
	}
	return emojiID(user), nil
}

// WriteEmojiStatus sets the status to the custom emoji id, clearing it for 0.
func (p *Profile) WriteEmojiStatus(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var status tg.EmojiStatusClass = &tg.EmojiStatusEmpty{}
	if id != 0 {
		status = &tg.EmojiStatus{DocumentID: id}
	}

	if _, err := p.api.AccountUpdateEmojiStatus(ctx, status); err != nil {
		return remote("update emoji status", err)
	}
	return nil
}

func emojiID(user *tg.User) int64 {
	status, ok := user.GetEmojiStatus()
	if !ok {
		return 0
	}
	if s, ok := status.(*tg.EmojiStatus); ok {
		return s.DocumentID
	}
	return 0
}

func remote(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrRemote, op, err)
}
