package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dmitrijs2005/trackvault/internal/client/client"
	"github.com/dmitrijs2005/trackvault/internal/common"
)

var errUsage = errors.New("usage")

func (a *App) Login(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, userName, string(password)); err != nil {
		a.printf("Login unsuccessful: %s", err)
		return err
	}

	a.userName = userName
	a.printf("Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.api.Logout()
	a.userName = ""
	a.printf("Logged out")
	return nil
}

func (a *App) List(ctx context.Context) error {
	list, err := a.api.List(ctx)
	if err != nil {
		return a.fail(err)
	}
	if len(list) == 0 {
		a.printf("No tracks yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tURL")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Name, t.Size, t.LastModified.Local().Format("2006-01-02 15:04"), t.URL)
	}
	return tw.Flush()
}

func (a *App) Upload(ctx context.Context, path string) error {
	if path == "" {
		a.printf("Usage: upload <path>")
		return errUsage
	}

	f, err := os.Open(path)
	if err != nil {
		return a.fail(err)
	}
	defer f.Close()

	res, err := a.api.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return a.fail(err)
	}
	a.printResult(res)
	return nil
}

func (a *App) YouTube(ctx context.Context, pageURL string) error {
	if pageURL == "" {
		a.printf("Usage: youtube <url>")
		return errUsage
	}

	a.printf("Importing, this can take a while...")
	res, err := a.api.ImportYouTube(ctx, pageURL)
	if err != nil {
		return a.fail(err)
	}
	a.printResult(res)
	return nil
}

func (a *App) Delete(ctx context.Context, name string) error {
	if name == "" {
		a.printf("Usage: delete <name>")
		return errUsage
	}

	if err := a.api.Delete(ctx, name); err != nil {
		return a.fail(err)
	}
	a.printf("Deleted %s", name)
	return nil
}

func (a *App) printResult(res *client.UploadResult) {
	if res.Title != "" {
		a.printf("%s: %s (%s)", res.Message, res.Name, res.Title)
		return
	}
	a.printf("%s: %s", res.Message, res.Name)
}

func (a *App) fail(err error) error {
	if errors.Is(err, client.ErrNotLoggedIn) || errors.Is(err, client.ErrUnauthorized) {
		a.userName = ""
		a.printf("Please log in first")
		return err
	}
	a.printf("Error: %s", err)
	return err
}
