package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-converter/internal/batch"
	"github.com/aliskhannn/image-converter/internal/cancel"
	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/convert"
	"github.com/aliskhannn/image-converter/internal/dispatch"
	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/ocr"
	"github.com/aliskhannn/image-converter/internal/ocr/tesseract"
	"github.com/aliskhannn/image-converter/internal/preflight"
	"github.com/aliskhannn/image-converter/internal/processor"
)

const progressSteps = 1000

type runFlags struct {
	tool     string
	out      string
	maxBytes int64
	fontDir  string
	quality  int
	langs    []string

	width, height, percent int
	fit                    bool
	background             string
	preset, presetOption   string

	angle        float64
	flipH, flipV bool

	cropX, cropY, cropW, cropH int
	aspect                     string

	text, font, color string
	fontSize          float64
	overlay           string
	opacity           int

	level int
}

var flags runFlags

var runCmd = &cobra.Command{
	Use:   "run --tool <id> [flags] files...",
	Short: "Run a tool on local files",
	Example: `  convert run --tool png-to-jpg a.png b.png
  convert run --tool resize-image --percent 50 photo.jpg
  convert run --tool watermark --text "Draft" --opacity 40 *.jpg
  convert run --tool extract-text --lang eng --lang deu scan.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, args)
	},
}

func init() {
	f := runCmd.Flags()

	f.StringVar(&flags.tool, "tool", "", "tool id, see \"convert tools\"")
	f.StringVarP(&flags.out, "out", "o", ".", "output directory")
	f.Int64Var(&flags.maxBytes, "max-bytes", preflight.DefaultMaxBytes, "size limit of the selection")
	f.StringVar(&flags.fontDir, "font-dir", "", "directory with <Font>.ttf files for text watermarks")
	f.IntVar(&flags.quality, "quality", 100, "JPEG quality of converted images")
	f.StringSliceVar(&flags.langs, "lang", []string{"eng"}, "OCR languages")

	f.IntVar(&flags.width, "width", 0, "resize: target width")
	f.IntVar(&flags.height, "height", 0, "resize: target height")
	f.IntVar(&flags.percent, "percent", 0, "resize: scale in percent, overrides width and height")
	f.BoolVar(&flags.fit, "fit", false, "resize: keep the aspect ratio and pad")
	f.StringVar(&flags.background, "background", "", "resize: padding colour, e.g. #FFFFFF")
	f.StringVar(&flags.preset, "preset", "", "resize: preset name, e.g. Instagram")
	f.StringVar(&flags.presetOption, "preset-option", "", "resize: preset option, e.g. Story")

	f.Float64Var(&flags.angle, "angle", 0, "rotate: degrees clockwise")
	f.BoolVar(&flags.flipH, "flip-h", false, "rotate: flip horizontally")
	f.BoolVar(&flags.flipV, "flip-v", false, "rotate: flip vertically")

	f.IntVar(&flags.cropX, "crop-x", 0, "crop: left edge")
	f.IntVar(&flags.cropY, "crop-y", 0, "crop: top edge")
	f.IntVar(&flags.cropW, "crop-w", 0, "crop: width")
	f.IntVar(&flags.cropH, "crop-h", 0, "crop: height")
	f.StringVar(&flags.aspect, "aspect", "", "crop: aspect ratio, e.g. 16:9")

	f.StringVar(&flags.text, "text", "", "watermark: text")
	f.StringVar(&flags.font, "font", catalog.DefaultFont, "watermark: font name")
	f.Float64Var(&flags.fontSize, "font-size", 0, "watermark: font size")
	f.StringVar(&flags.color, "color", "#FFFFFF", "watermark: text colour")
	f.StringVar(&flags.overlay, "image", "", "watermark: overlay image file")
	f.IntVar(&flags.opacity, "opacity", 100, "watermark: opacity in percent")

	f.IntVar(&flags.level, "level", model.DefaultCompressionSlider, "compress: slider position, 0 to 100")

	_ = runCmd.MarkFlagRequired("tool")

	rootCmd.AddCommand(runCmd)
}

// settings builds the settings the action consumes from the flags.
func (f runFlags) settings(action model.Action) (model.Settings, error) {
	switch model.ExpectedSettings(action) {
	case model.SettingsResize:
		s := model.ResizeSettings{
			Mode:         model.ResizeBySize,
			Width:        f.width,
			Height:       f.height,
			AspectFit:    f.fit,
			Background:   f.background,
			Preset:       f.preset,
			PresetOption: f.presetOption,
		}
		if f.percent > 0 {
			s.Mode, s.Percent = model.ResizeByPercentage, f.percent
		}
		return s, nil
	case model.SettingsRotate:
		return model.RotateSettings{Angle: f.angle, FlipHorizontal: f.flipH, FlipVertical: f.flipV}, nil
	case model.SettingsCrop:
		return model.CropSettings{X: f.cropX, Y: f.cropY, Width: f.cropW, Height: f.cropH, Aspect: f.aspect}, nil
	case model.SettingsWatermark:
		var s model.WatermarkSettings
		if f.text != "" {
			s.Text = &model.TextOverlay{Text: f.text, Font: f.font, FontSize: f.fontSize, Color: f.color, Opacity: f.opacity}
		}
		if f.overlay != "" {
			s.Image = &model.ImageOverlay{Path: f.overlay, Opacity: f.opacity}
		}
		if s.Text == nil && s.Image == nil {
			return nil, fmt.Errorf("%w: watermark needs --text or --image", model.ErrInvalidSettings)
		}
		return s, nil
	case model.SettingsCompression:
		return model.CompressionLevel{Slider: f.level}, nil
	default:
		return model.NoSettings{}, nil
	}
}

func run(cmd *cobra.Command, paths []string) error {
	tool, err := catalog.Lookup(flags.tool)
	if err != nil {
		return err
	}

	settings, err := flags.settings(tool.Action)
	if err != nil {
		return err
	}

	if err := preflight.New(flags.maxBytes).Check(paths, tool); err != nil {
		var fe *preflight.FileError
		if errors.As(err, &fe) {
			return fmt.Errorf("%s: %s", fe.Title(), fe.Message())
		}
		return err
	}

	if err := os.MkdirAll(flags.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	queue := dispatch.NewQueue()
	defer queue.Close()

	orchestrator := batch.New(
		convert.New(convert.Options{JPEGQuality: flags.quality}),
		processor.New(processor.Options{FontDir: flags.fontDir, JPEGQuality: flags.quality}),
		ocr.New(tesseract.New(flags.langs...), 0),
		queue,
	)

	files := make([]model.File, len(paths))
	for i, p := range paths {
		files[i] = model.File{Name: filepath.Base(p), Source: p}
	}

	bar := pb.New(progressSteps).
		SetTemplateString(`{{ bar . " " "━" "━" " " " "}} {{percent .}} {{rtime .}}`).
		SetWriter(cmd.ErrOrStderr()).
		Start()

	r := orchestrator.Start(ctx, batch.Request{
		Files:     files,
		Tool:      tool,
		Settings:  settings,
		OutputDir: flags.out,
		Token:     cancel.New(),
		Progress: func(p float64) {
			bar.SetCurrent(int64(p * progressSteps))
		},
	})

	res, err := r.Wait(context.Background())
	bar.Finish()
	if err != nil {
		return err
	}

	return report(cmd, tool, res)
}

// report writes the archive and texts of res to the output directory and
// prints what was produced.
func report(cmd *cobra.Command, tool model.Tool, res batch.Result) error {
	out := cmd.OutOrStdout()

	if res.Cancelled {
		fmt.Fprintln(out, "cancelled, partial results:")
	}

	for _, o := range res.Outputs {
		fmt.Fprintln(out, o)
	}

	if len(res.Archive) > 0 {
		dst := filepath.Join(flags.out, fmt.Sprintf("Archive-%s.zip", uuid.New()))
		if err := os.WriteFile(dst, res.Archive, 0o644); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
		fmt.Fprintln(out, dst)
	}

	if tool.Action != model.ActionExtractText {
		return nil
	}
	if res.NoTextFound {
		fmt.Fprintln(out, "no text found")
		return nil
	}

	for i, text := range res.Texts {
		if text == "" {
			continue
		}

		dst := convert.OutputPath(flags.out, res.Files[i].Source, model.FormatTXT.Extension())
		if err := os.WriteFile(dst, []byte(text+"\n"), 0o644); err != nil {
			zlog.Logger.Err(err).Str("file", dst).Msg("failed to write text")
			continue
		}
		fmt.Fprintf(out, "%s\n%s\n", dst, indent(text))
	}

	return nil
}

func indent(text string) string {
	return "  " + strings.ReplaceAll(text, "\n", "\n  ")
}
