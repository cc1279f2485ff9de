package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/ppmsteg/internal/api"
	"github.com/muurk/ppmsteg/internal/client"
	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
	"github.com/muurk/ppmsteg/internal/ui"
)

// autoServer as the --server value selects the first server found via mDNS
const autoServer = "auto"

// Output formats for decode and inspect
const (
	formatText = "text"
	formatJSON = "json"
)

func (a *app) addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.serverURL, "server", "", `ppmsteg server URL, or "auto" to use the first server found via mDNS`)
	cmd.Flags().BoolVar(&a.insecure, "insecure", false, "Skip TLS certificate verification (self-signed servers)")
}

func checkFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unknown format %q (expected %s or %s)", format, formatText, formatJSON)
	}
	return nil
}

// remote returns a client for --server, resolving "auto" through discovery
func (a *app) remote(ctx context.Context) (*client.Client, error) {
	baseURL := a.serverURL
	if baseURL == autoServer {
		svc, err := a.firstServer(ctx)
		if err != nil {
			return nil, err
		}
		baseURL = svc.BaseURL()
		logging.Info("Using discovered server",
			zap.String("instance", svc.Instance),
			zap.String("url", baseURL),
		)
	}

	c := client.New(baseURL)
	if a.insecure {
		c.SetInsecure(true)
	}
	return c, nil
}

// recordImage stores what was learned about an image and returns its registry key
func (a *app) recordImage(path string, img *ppm.Image, capacity int) string {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	h := img.Header
	a.registry.RecordImage(key, h.Width, h.Height, h.MaxColorValue, capacity)
	return key
}

// failureTitle gives codec errors their short form and everything else fallback
func failureTitle(err error, fallback string) string {
	var codecErr *steg.CodecError
	if errors.As(err, &codecErr) {
		return steg.GetShortErrorMessage(err)
	}
	return fallback
}

// ---------------------------------------------------------------------------
// encode
// ---------------------------------------------------------------------------

type encodeOptions struct {
	message    string
	messageSet bool
	output     string
	force      bool
}

func (a *app) newEncodeCmd() *cobra.Command {
	var opts encodeOptions

	cmd := &cobra.Command{
		Use:   "encode <image.ppm>",
		Short: "Embed a message in an image",
		Long: `Embed an ASCII message in a binary PPM image.

The message comes from --message. Without it, ppmsteg prompts for one when
run in a terminal and otherwise reads stdin, dropping one trailing newline.

The result is written next to the input as <name>.steg.ppm unless --output
is given. The suffix is configurable with output_suffix in the config file.`,
		Example: `  # Embed a message given on the command line
  ppmsteg encode cover.ppm -m "meet at noon"

  # Read the message from a file
  ppmsteg encode cover.ppm -o secret.ppm < note.txt

  # Let a ppmsteg server do the work
  ppmsteg encode cover.ppm -m hello --server http://studio.local:8765`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.messageSet = cmd.Flags().Changed("message")
			return a.runEncode(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Message to embed (default: prompt, or read stdin)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output path (default: <input><suffix>.ppm)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite the output file without asking")
	a.addRemoteFlags(cmd)

	return cmd
}

func (a *app) runEncode(cmd *cobra.Command, input string, opts encodeOptions) error {
	img, err := ppm.Load(input)
	if err != nil {
		return a.fail("Could not read image", err)
	}
	capacity := steg.ImageCapacity(img)

	message := opts.message
	if !opts.messageSet {
		message, err = a.readMessage(cmd, capacity)
		if err != nil {
			return a.fail("No message to embed", err)
		}
	}

	output := opts.output
	if output == "" {
		output = defaultOutputPath(input, a.registry.Preferences.OutputSuffix)
	}

	if !opts.force && a.registry.Preferences.ConfirmOverwrite && fileExists(output) {
		if !ui.ConfirmOverwrite(cmd.InOrStdin(), cmd.OutOrStdout(), output) {
			a.errOut.PrintError("Output file exists", fmt.Errorf("not overwriting %s", output), []string{
				"Pass --force to overwrite without asking",
				"Choose another path with --output",
				"Set confirm_overwrite: false in the config file to always overwrite",
			})
			return fmt.Errorf("%w: %s exists", errReported, output)
		}
	}

	var encoded *ppm.Image
	if a.serverURL != "" {
		encoded, err = a.encodeRemote(cmd.Context(), img, message)
	} else {
		encoded, err = steg.EncodeImage(img, message)
	}
	if err != nil {
		return a.fail(failureTitle(err, "Encoding failed"), err)
	}

	if err := encoded.WriteFile(output); err != nil {
		return a.fail("Could not write image", err)
	}

	key := a.recordImage(input, img, capacity)
	if absOutput, err := filepath.Abs(output); err == nil {
		output = absOutput
	}
	a.registry.RecordEncode(key, output, len(message))
	a.saveRegistry()

	a.out.PrintSuccess("Message embedded",
		ui.Detail{Key: "Input", Value: input},
		ui.Detail{Key: "Output", Value: output},
		ui.Detail{Key: "Message", Value: fmt.Sprintf("%d bytes", len(message))},
		ui.Detail{Key: "Capacity", Value: fmt.Sprintf("%d bytes", capacity)},
	)
	a.out.PrintCapacity(len(message), capacity)
	return nil
}

func (a *app) encodeRemote(ctx context.Context, img *ppm.Image, message string) (*ppm.Image, error) {
	c, err := a.remote(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.Encode(ctx, img.Bytes(), message)
	if err != nil {
		return nil, err
	}
	return ppm.DecodeBytes(data)
}

// readMessage prompts on a terminal and reads stdin otherwise
func (a *app) readMessage(cmd *cobra.Command, capacity int) (string, error) {
	in := cmd.InOrStdin()
	if in == os.Stdin && ui.IsInteractive() {
		title := fmt.Sprintf("Message to embed (up to %d characters)", capacity)
		return ui.PromptMessage(os.Stdin, cmd.OutOrStdout(), title, capacity, steg.ValidateMessage)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading message from stdin: %w", err)
	}
	return trimNewline(string(data)), nil
}

// trimNewline removes one trailing line ending, as left by echo or a heredoc
func trimNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		s = strings.TrimSuffix(s, "\n")
		s = strings.TrimSuffix(s, "\r")
	}
	return s
}

// defaultOutputPath turns cover.ppm into cover<suffix>.ppm
func defaultOutputPath(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix + ".ppm"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ---------------------------------------------------------------------------
// decode
// ---------------------------------------------------------------------------

// decodeResult is one line of `decode --format json` output
type decodeResult struct {
	File    string `json:"file"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Type    string `json:"type,omitempty"`
}

func (a *app) newDecodeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "decode <image.ppm>...",
		Short: "Extract the message from one or more images",
		Long: `Extract the message embedded in each image.

With one image and the text format only the message is printed, so the
output can be piped. With several images each line is prefixed with the
file name. The json format prints one JSON object per image.

With --server and several images a single WebSocket session is used.`,
		Example: `  # Print the hidden message
  ppmsteg decode secret.ppm

  # Decode a batch as JSON lines
  ppmsteg decode --format json *.steg.ppm

  # Decode on a server found via mDNS
  ppmsteg decode secret.ppm --server auto`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDecode(cmd, args, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatText, "Output format (text, json)")
	a.addRemoteFlags(cmd)

	return cmd
}

func (a *app) runDecode(cmd *cobra.Command, files []string, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	decode, done, err := a.decoder(cmd.Context(), len(files))
	if err != nil {
		return a.fail("Could not reach server", err)
	}
	defer done()

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	var lastErr error
	failed := 0
	for _, file := range files {
		message, err := decode(file)
		if err != nil {
			failed++
			lastErr = err
			if format == formatJSON {
				errType, _ := api.Classify(err)
				var apiErr *client.APIError
				if errors.As(err, &apiErr) {
					errType = apiErr.Type
				}
				if encErr := enc.Encode(decodeResult{File: file, Error: err.Error(), Type: errType}); encErr != nil {
					return encErr
				}
			}
			a.errOut.PrintError(failureTitle(err, "Decoding failed"), fmt.Errorf("%s: %w", file, err), troubleshooting(err))
			continue
		}

		switch {
		case format == formatJSON:
			if err := enc.Encode(decodeResult{File: file, Message: message}); err != nil {
				return err
			}
		case len(files) == 1:
			fmt.Fprintln(out, message)
		default:
			fmt.Fprintf(out, "%s: %s\n", file, message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d images could not be decoded: %w", errReported, failed, len(files), lastErr)
	}
	return nil
}

// decoder returns a function decoding one file, locally or on the server.
// done releases whatever the decoder holds open.
func (a *app) decoder(ctx context.Context, count int) (decode func(string) (string, error), done func(), err error) {
	if a.serverURL == "" {
		return func(path string) (string, error) {
			img, err := ppm.Load(path)
			if err != nil {
				return "", err
			}
			return steg.DecodeImage(img)
		}, func() {}, nil
	}

	c, err := a.remote(ctx)
	if err != nil {
		return nil, nil, err
	}

	if count == 1 {
		return func(path string) (string, error) {
			data, err := readImageFile(path)
			if err != nil {
				return "", err
			}
			return c.Decode(ctx, data)
		}, func() {}, nil
	}

	session, err := c.Dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	return func(path string) (string, error) {
		data, err := readImageFile(path)
		if err != nil {
			return "", err
		}
		return session.Decode(ctx, data)
	}, func() {
		if err := session.Close(); err != nil {
			logging.Debug("Closing websocket session failed", logging.ErrorField(err))
		}
	}, nil
}

// readImageFile reads an image for upload. Parsing is left to the server.
func readImageFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// inspect
// ---------------------------------------------------------------------------

func (a *app) newInspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <image.ppm>",
		Short: "Show header fields and capacity of an image",
		Long: `Parse the PPM header and report its fields, where the pixel data starts,
how many pixel bytes follow and the longest message the image can carry.`,
		Example: `  ppmsteg inspect cover.ppm
  ppmsteg inspect cover.ppm --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", formatText, "Output format (text, json)")
	a.addRemoteFlags(cmd)

	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, path, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	info, err := a.inspect(cmd.Context(), path)
	if err != nil {
		return a.fail("Could not inspect image", err)
	}

	if format == formatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	a.out.PrintSuccess("PPM image",
		ui.Detail{Key: "File", Value: path},
		ui.Detail{Key: "Magic", Value: info.Magic},
		ui.Detail{Key: "Dimensions", Value: fmt.Sprintf("%d x %d", info.Width, info.Height)},
		ui.Detail{Key: "Max color", Value: fmt.Sprintf("%d", info.MaxColorValue)},
		ui.Detail{Key: "Data offset", Value: fmt.Sprintf("%d bytes", info.DataOffset)},
		ui.Detail{Key: "Pixel data", Value: fmt.Sprintf("%d bytes", info.PixelBytes)},
		ui.Detail{Key: "Expected", Value: fmt.Sprintf("%d bytes", info.ExpectedBytes)},
		ui.Detail{Key: "Capacity", Value: fmt.Sprintf("%d characters", info.Capacity)},
	)

	if uint64(info.PixelBytes) != info.ExpectedBytes {
		a.out.PrintWarning("Pixel data size mismatch",
			ui.Detail{Key: "Header", Value: fmt.Sprintf("%d bytes", info.ExpectedBytes)},
			ui.Detail{Key: "File", Value: fmt.Sprintf("%d bytes", info.PixelBytes)},
		)
	}
	return nil
}

func (a *app) inspect(ctx context.Context, path string) (*api.HeaderInfo, error) {
	if a.serverURL != "" {
		c, err := a.remote(ctx)
		if err != nil {
			return nil, err
		}
		data, err := readImageFile(path)
		if err != nil {
			return nil, err
		}
		return c.Inspect(ctx, data)
	}

	img, err := ppm.Load(path)
	if err != nil {
		return nil, err
	}
	info := api.DescribeImage(img)

	a.recordImage(path, img, info.Capacity)
	a.saveRegistry()
	return info, nil
}

// ---------------------------------------------------------------------------
// capacity
// ---------------------------------------------------------------------------

func (a *app) newCapacityCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "capacity <image.ppm>",
		Short: "Show how much text an image can hold",
		Long: `Show the longest message an image can carry. With --message, also show
how much of that capacity the message would use. Exits non-zero when the
message does not fit.`,
		Example: `  ppmsteg capacity cover.ppm
  ppmsteg capacity cover.ppm -m "meet at noon"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCapacity(args[0], message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Message to check against the capacity")

	return cmd
}

func (a *app) runCapacity(path, message string) error {
	img, err := ppm.Load(path)
	if err != nil {
		return a.fail("Could not read image", err)
	}
	capacity := steg.ImageCapacity(img)

	a.out.PrintSuccess("Capacity",
		ui.Detail{Key: "File", Value: path},
		ui.Detail{Key: "Pixel data", Value: fmt.Sprintf("%d bytes", len(img.Pixels))},
		ui.Detail{Key: "Capacity", Value: fmt.Sprintf("%d characters", capacity)},
	)

	if message == "" {
		return nil
	}

	if err := steg.ValidateMessage(message); err != nil {
		return a.fail(failureTitle(err, "Invalid message"), err)
	}

	a.out.PrintCapacity(len(message), capacity)
	if len(message) > capacity {
		a.out.PrintWarning("Message does not fit",
			ui.Detail{Key: "Needs", Value: fmt.Sprintf("%d pixel bytes", steg.Required(len(message)))},
			ui.Detail{Key: "Has", Value: fmt.Sprintf("%d pixel bytes", len(img.Pixels))},
		)
		return fmt.Errorf("%w: message needs %d characters of capacity, image has %d", errReported, len(message), capacity)
	}
	return nil
}
