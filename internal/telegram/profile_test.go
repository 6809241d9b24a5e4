package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/gotd/td/tg"
)

type fakeAPI struct {
	about    string
	status   tg.EmojiStatusClass
	users    []tg.UserClass
	err      error
	deadline bool

	lastAbout  string
	lastStatus tg.EmojiStatusClass
}

func (f *fakeAPI) UsersGetFullUser(ctx context.Context, id tg.InputUserClass) (*tg.UsersUserFull, error) {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &tg.UsersUserFull{FullUser: tg.UserFull{About: f.about}}, nil
}

func (f *fakeAPI) UsersGetUsers(ctx context.Context, id []tg.InputUserClass) ([]tg.UserClass, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.users != nil {
		return f.users, nil
	}
	user := &tg.User{}
	if f.status != nil {
		user.SetEmojiStatus(f.status)
	}
	return []tg.UserClass{user}, nil
}

func (f *fakeAPI) AccountUpdateProfile(ctx context.Context, request *tg.AccountUpdateProfileRequest) (tg.UserClass, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastAbout, _ = request.GetAbout()
	return &tg.User{}, nil
}

func (f *fakeAPI) AccountUpdateEmojiStatus(ctx context.Context, status tg.EmojiStatusClass) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.lastStatus = status
	return true, nil
}

func TestProfileBio(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{about: "hello"}
	p := newProfile(api, time.Second)

	bio, err := p.ReadBio(ctx)
	if err != nil {
		t.Fatalf("ReadBio() error = %v", err)
	}
	if bio != "hello" {
		t.Errorf("ReadBio() = %q, want hello", bio)
	}
	if !api.deadline {
		t.Error("expected read to carry a deadline")
	}

	if err := p.WriteBio(ctx, "Listening to trackA"); err != nil {
		t.Fatalf("WriteBio() error = %v", err)
	}
	if api.lastAbout != "Listening to trackA" {
		t.Errorf("about sent = %q", api.lastAbout)
	}
}

func TestProfileEmojiStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Read", func(t *testing.T) {
		tests := []struct {
			name   string
			status tg.EmojiStatusClass
			want   int64
		}{
			{"none", nil, 0},
			{"empty", &tg.EmojiStatusEmpty{}, 0},
			{"custom", &tg.EmojiStatus{DocumentID: 42}, 42},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := newProfile(&fakeAPI{status: tt.status}, time.Second)
				got, err := p.ReadEmojiStatus(ctx)
				if err != nil {
					t.Fatalf("ReadEmojiStatus() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("ReadEmojiStatus() = %d, want %d", got, tt.want)
				}
			})
		}
	})

	t.Run("Unexpected User", func(t *testing.T) {
		p := newProfile(&fakeAPI{users: []tg.UserClass{&tg.UserEmpty{}}}, time.Second)
		if _, err := p.ReadEmojiStatus(ctx); !errors.Is(err, shared.ErrRemote) {
			t.Errorf("expected ErrRemote, got %v", err)
		}
	})

	t.Run("Write", func(t *testing.T) {
		api := &fakeAPI{}
		p := newProfile(api, time.Second)

		if err := p.WriteEmojiStatus(ctx, 5346074681004801565); err != nil {
			t.Fatalf("WriteEmojiStatus() error = %v", err)
		}
		status, ok := api.lastStatus.(*tg.EmojiStatus)
		if !ok || status.DocumentID != 5346074681004801565 {
			t.Errorf("unexpected status sent: %#v", api.lastStatus)
		}

		if err := p.WriteEmojiStatus(ctx, 0); err != nil {
			t.Fatalf("WriteEmojiStatus(0) error = %v", err)
		}
		if _, ok := api.lastStatus.(*tg.EmojiStatusEmpty); !ok {
			t.Errorf("expected empty status for 0, got %#v", api.lastStatus)
		}
	})
}

func TestProfileErrorsAreRemote(t *testing.T) {
	ctx := context.Background()
	p := newProfile(&fakeAPI{err: errors.New("FLOOD_WAIT_30")}, 0)

	checks := map[string]error{}
	_, checks["ReadBio"] = p.ReadBio(ctx)
	checks["WriteBio"] = p.WriteBio(ctx, "x")
	_, checks["ReadEmojiStatus"] = p.ReadEmojiStatus(ctx)
	checks["WriteEmojiStatus"] = p.WriteEmojiStatus(ctx, 1)

	for name, err := range checks {
		if !errors.Is(err, shared.ErrRemote) {
			t.Errorf("%s: expected ErrRemote, got %v", name, err)
		}
		if err != nil && !strings.Contains(err.Error(), "FLOOD_WAIT_30") {
			t.Errorf("%s: expected cause in message, got %v", name, err)
		}
	}
}

func TestTerminalPrompt(t *testing.T) {
	var out strings.Builder

	code, err := TerminalPrompt(strings.NewReader(" 12345 \n"), &out)(context.Background())
	if err != nil {
		t.Fatalf("prompt error = %v", err)
	}
	if code != "12345" {
		t.Errorf("code = %q", code)
	}
	if !strings.Contains(out.String(), "code") {
		t.Errorf("expected prompt text, got %q", out.String())
	}

	if _, err := TerminalPrompt(strings.NewReader("\n"), &out)(context.Background()); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument for empty input, got %v", err)
	}
}

func TestNew(t *testing.T) {
	t.Run("Missing Credentials", func(t *testing.T) {
		if _, err := New(Config{SessionsDir: t.TempDir()}, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Creates Private Sessions Dir", func(t *testing.T) {
		dir := t.TempDir() + "/sessions"
		c, err := New(Config{APIID: 1, APIHash: "hash", SessionsDir: dir}, shared.NewLogger(nil))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if !strings.HasPrefix(c.SessionPath(), dir) {
			t.Errorf("session path %q not under %q", c.SessionPath(), dir)
		}
	})
}
