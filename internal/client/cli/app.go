package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/trackvault/internal/client/client"
	"github.com/dmitrijs2005/trackvault/internal/client/config"
)

// apiClient is the part of client.APIClient the commands use.
type apiClient interface {
	LoggedIn() bool
	Logout()
	Ping(ctx context.Context) error
	Login(ctx context.Context, username, password string) error
	List(ctx context.Context) ([]client.Track, error)
	Upload(ctx context.Context, fileName string, data io.Reader) (*client.UploadResult, error)
	ImportYouTube(ctx context.Context, pageURL string) (*client.UploadResult, error)
	Delete(ctx context.Context, fileName string) error
}

type App struct {
	config   *config.Config
	api      apiClient
	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	api := client.New(c.ServerURL, &http.Client{Timeout: c.RequestTimeout})
	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) getStatus() string {
	if a.userName == "" || !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Run checks the server, asks for credentials and then serves commands
// until exit or end of input.
func (a *App) Run(ctx context.Context) {
	a.printf("Welcome to trackvault CLI (type 'help' for commands)")

	if err := a.api.Ping(ctx); err != nil {
		a.printf("Warning: %s is not reachable: %s", a.config.ServerURL, err)
	}

	if err := a.Login(ctx); err != nil && !errors.Is(err, io.EOF) {
		a.printf("Error: %s", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
