package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	tokenFileName  = "artifact_token"
	tokenFileMode  = 0600
	keyringService = "riskdash"
	keyringUser    = "artifact_token"
)

var (
	tokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "Bearer token for remote artifact downloads (prompted when omitted)",
	}

	clearTokenFlag = &cli.BoolFlag{
		Name:  "clear",
		Usage: "Remove the stored token",
	}

	authCmd = &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store the bearer token used to download remote artifacts",
		Action:          cmdAuth,
		Flags: []cli.Flag{
			tokenFlag,
			clearTokenFlag,
		},
	}
)

func cmdAuth(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if cmd.Bool(clearTokenFlag.Name) {
		if err := deleteArtifactToken(cfg.HomeDir); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}
		fmt.Println("Token removed")
		return nil
	}

	token := cmd.String(tokenFlag.Name)
	if token == "" {
		fmt.Print("Paste the artifact token and hit enter:\n>")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading user input: %w", err)
		}
		token = line
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token required")
	}

	if err := saveArtifactToken(cfg.HomeDir, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Println("Token saved")
	return nil
}

func saveArtifactToken(home, token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return os.WriteFile(tokenPath(home), []byte(token), tokenFileMode)
	}

	// keychain wins, drop any file copy
	os.Remove(tokenPath(home))
	return nil
}

func getArtifactToken(home string) (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	b, err := os.ReadFile(tokenPath(home))
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func deleteArtifactToken(home string) error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Warn("keychain unavailable", "error", err)
	}
	if err := os.Remove(tokenPath(home)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func tokenPath(home string) string {
	return filepath.Join(home, tokenFileName)
}
