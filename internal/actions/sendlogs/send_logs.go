// Package sendlogs bundles the bot's logs and system information into an
// archive and uploads it for support.
package sendlogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/spauka/secretsanta/internal/config"
	contextInternal "github.com/spauka/secretsanta/internal/context"
	"github.com/spauka/secretsanta/internal/paths"
	"github.com/spauka/secretsanta/pkg/utils"
)

const apiPath = "https://secretsanta.spauka.se/api/support/logs"

//nolint:funlen
func Handle(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	tmpDir, err := os.MkdirTemp("", "secretsanta-send-logs")
	if err != nil {
		return errors.WithMessage(err, "failed to create temp directory")
	}
	defer func() {
		err := os.RemoveAll(tmpDir)
		if err != nil {
			log.Println(errors.WithMessage(err, "failed to remove temporary directory"))
		}
	}()

	logDir := paths.DefaultLogDir
	if cfg, err := config.Load(cliCtx.String("config")); err == nil {
		logDir = cfg.Server.LogDir
	}

	err = collectBotLogs(logDir, tmpDir)
	if err != nil {
		return errors.WithMessage(err, "failed to collect bot logs")
	}

	err = collectSystemInfo(ctx, tmpDir)
	if err != nil {
		return errors.WithMessage(err, "failed to collect system info")
	}

	additionalLogs := cliCtx.StringSlice("include-logs")
	if len(additionalLogs) > 0 {
		collectAdditionalLogs(additionalLogs, tmpDir)
	}

	f, err := os.CreateTemp("", "secretsanta-send-logs")
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	err = compress(tmpDir, f)
	if err != nil {
		return errors.WithMessage(err, "failed to compress logs")
	}
	_, err = f.Seek(0, 0)
	if err != nil {
		return errors.WithMessage(err, "failed to seek file")
	}

	id, err := sendFile(ctx, f)
	if err != nil {
		return errors.WithMessage(err, "failed to send file")
	}

	fmt.Println()
	fmt.Println("--------------------------")
	fmt.Println("Logs were sent")
	fmt.Println("Logs ID:", id)
	fmt.Println("Quote this ID when asking for help")

	return nil
}

func collectBotLogs(logDir, destinationDir string) error {
	if !utils.IsFileExists(logDir) {
		// skip
		return nil
	}

	destinationDir = filepath.Join(destinationDir, "logs")

	err := utils.Copy(logDir, destinationDir)
	if err != nil {
		return errors.WithMessage(err, "failed to copy bot logs")
	}

	return nil
}

func collectSystemInfo(ctx context.Context, destinationDir string) error {
	f, err := os.OpenFile(filepath.Join(destinationDir, "system_info.txt"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithMessage(err, "failed to open file")
	}
	defer func() {
		err := f.Close()
		if err != nil {
			return
		}
	}()

	osInfo := contextInternal.OSInfoFromContext(ctx)

	_, err = f.WriteString("Version: " + paths.Version + "\n")
	if err != nil {
		return errors.WithMessage(err, "failed to write to file")
	}
	_, _ = f.WriteString(osInfo.String() + "\n")

	return nil
}

func collectAdditionalLogs(logs []string, destinationDir string) {
	destinationDir = filepath.Join(destinationDir, "additional")

	for _, logPath := range logs {
		if !utils.IsFileExists(logPath) {
			// skip
			continue
		}

		dest := filepath.Join(destinationDir, filepath.Base(logPath))

		err := utils.Copy(logPath, dest)
		if err != nil {
			log.Println(errors.WithMessagef(err, "failed to copy %s", logPath))
		}
	}
}

func sendFile(ctx context.Context, buf io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiPath, buf)
	if err != nil {
		return "", errors.WithMessage(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/tar+lz4")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.WithMessage(err, "failed to send logs")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()

		return "", errors.New("failed to send logs")
	}

	var result struct {
		ID string `json:"id"`
	}

	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return "", errors.WithMessage(err, "failed to decode response")
	}
	err = resp.Body.Close()
	if err != nil {
		log.Println("failed to close body", err)
	}

	return result.ID, nil
}
