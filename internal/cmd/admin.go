package cmd

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/secrets"
	"internwatch-engine/internal/store"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	cfg, err := ctx.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != "postgres" {
		st, err := ctx.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return printJSON(ctx.Out, map[string]any{"ok": true, "driver": "sqlite", "path": cfg.Store.SQLitePath})
	}

	pg, err := store.OpenPostgres(ctx.Ctx, cfg.Store.PostgresDSN, cfg.Store.MaxConns, cfg.Store.ViaBouncer)
	if err != nil {
		return err
	}
	defer pg.Close()
	version, dirty, err := pg.Migrate()
	if err != nil {
		return err
	}
	ctx.Logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("postgres migrated")
	return printJSON(ctx.Out, map[string]any{"ok": !dirty, "driver": "postgres", "version": version, "dirty": dirty})
}

type ConfigCmd struct {
	Validate ValidateConfigCmd `cmd:"" help:"Validate the config and print errors and warnings."`
	Path     PathConfigCmd     `cmd:"" help:"Print the config file path."`
}

type ValidateConfigCmd struct{}

type PathConfigCmd struct{}

func (c *ValidateConfigCmd) Run(ctx *Context) error {
	cfg, err := config.Load(ctx.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", ctx.ConfigPath, err)
	}
	config.Overlay(&cfg, ctx.Overrides)
	_, vr := config.NormalizeAndValidate(cfg)
	if err := printJSON(ctx.Out, vr); err != nil {
		return err
	}
	if !vr.OK() {
		return fmt.Errorf("config has %d error(s)", len(vr.Errors))
	}
	return nil
}

func (c *PathConfigCmd) Run(ctx *Context) error {
	abs, err := filepath.Abs(ctx.ConfigPath)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Out, abs)
	return err
}

type KeyCmd struct {
	Set    SetKeyCmd    `cmd:"" help:"Store the function key in the OS keychain."`
	Delete DeleteKeyCmd `cmd:"" help:"Remove the function key from the OS keychain."`
}

type SetKeyCmd struct {
	Key      string `arg:"" optional:"" help:"Key to store; read from stdin when omitted."`
	Generate bool   `help:"Generate a random key and print it."`
}

type DeleteKeyCmd struct{}

func (c *SetKeyCmd) Run(ctx *Context) error {
	key := strings.TrimSpace(c.Key)
	switch {
	case c.Generate:
		k, err := randomToken(24)
		if err != nil {
			return err
		}
		key = k
	case key == "":
		b, err := readLine(ctx.In)
		if err != nil {
			return err
		}
		key = b
	}
	if key == "" {
		return errors.New("empty key")
	}
	if err := secrets.SetFunctionKey(key); err != nil {
		return fmt.Errorf("store function key: %w", err)
	}
	if c.Generate {
		_, _ = fmt.Fprintln(ctx.Out, key)
	}
	ctx.Logger.Info().Str("service", secrets.KeyringService).Msg("function key stored")
	return nil
}

func (c *DeleteKeyCmd) Run(ctx *Context) error {
	if err := secrets.DeleteFunctionKey(); err != nil {
		return fmt.Errorf("delete function key: %w", err)
	}
	ctx.Logger.Info().Msg("function key deleted")
	return nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
