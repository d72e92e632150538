package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/deskmate/internal/engine"
	"github.com/hammamikhairi/deskmate/internal/speech"
)

func newOnceCmd(c *cli) *cobra.Command {
	var audio string
	cmd := &cobra.Command{
		Use:   `once ["request"]`,
		Short: "Handle a single request and exit",
		Long: `Handle one request without the interactive console. The request is the
joined arguments, or the transcript of --audio (WAV, MP3 or OGG).
Exits non-zero when the action fails.`,
		Example: `  deskmate once "what time is it"
  deskmate once --audio request.wav`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.TrimSpace(strings.Join(args, " "))
			if audio != "" {
				if text != "" {
					return errors.New("give either a request or --audio, not both")
				}
				t, err := transcribeFile(ctx, c, audio)
				if err != nil {
					return err
				}
				text = t
			}
			if text == "" {
				return errors.New("nothing to do: pass a request or --audio")
			}
			return runOnce(ctx, c, text, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&audio, "audio", "", "transcribe this audio file and use it as the request")
	return cmd
}

func transcribeFile(ctx context.Context, c *cli, path string) (string, error) {
	pcm, err := speech.DecodeFile(ctx, path)
	if err != nil {
		return "", err
	}
	model, err := speech.NewWhisperModel(c.cfg.Voice.WhisperModel, c.cfg.Voice.Language, c.log)
	if err != nil {
		return "", err
	}
	defer model.Close()

	utt, err := model.Transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}
	if utt.Empty() {
		return "", fmt.Errorf("no speech found in %s", path)
	}
	c.log.Info("once: heard %q", utt.Transcript)
	return utt.Transcript, nil
}

func runOnce(ctx context.Context, c *cli, text string, out io.Writer) error {
	a, err := newApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer a.Close()

	reply := a.engine.Handle(ctx, engine.SourceConsole, text)
	fmt.Fprintln(out, reply.Text)
	if code := reply.Result.GeneratedCode; code != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, code)
	}
	if !reply.Result.Success {
		return fmt.Errorf("%s failed", reply.Action())
	}
	return nil
}
