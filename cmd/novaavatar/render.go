package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/normanking/novaavatar/internal/animator"
	"github.com/normanking/novaavatar/internal/classifier"
	"github.com/normanking/novaavatar/internal/config"
	"github.com/normanking/novaavatar/internal/render"
	"github.com/normanking/novaavatar/internal/rig"
	"github.com/normanking/novaavatar/internal/signals"
)

// renderOptions describe one offline render: fixed signals applied before the
// first frame, then Frames steps of a simulated clock.
type renderOptions struct {
	Frames     int
	FPS        int
	Seed       int64
	State      string
	Loudness   float64
	Text       string
	Expression string
	Gesture    string
	Wake       string
	Theme      string
	Dir        string
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render frames offline on a simulated clock",
		Long: `Render applies the given signals, steps the rig on a simulated clock and
writes the final frame as SVG. With --dir every frame is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			last, err := renderFrames(cfg, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if name, _ := cmd.Flags().GetString("out"); name != "" && name != "-" {
				f, err := os.Create(name)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writePose(out, last)
			}
			_, err = out.Write(last.Render.SVG)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Frames, "frames", 60, "number of frames to step")
	f.IntVar(&opts.FPS, "fps", 60, "simulated frame rate")
	f.Int64Var(&opts.Seed, "seed", 1, "random seed for blinks and saccades")
	f.StringVar(&opts.State, "state", "authorized", "interaction state")
	f.Float64Var(&opts.Loudness, "loudness", 0, "output loudness 0-100")
	f.StringVar(&opts.Text, "text", "", "utterance to classify into a signal")
	f.StringVar(&opts.Expression, "expression", "", "facial expression (overrides --text)")
	f.StringVar(&opts.Gesture, "gesture", "", "gesture (overrides --text)")
	f.StringVar(&opts.Wake, "wake", "", "wake state: awake or sleep (overrides --text)")
	f.StringVar(&opts.Theme, "theme", "", "theme file")
	f.StringVar(&opts.Dir, "dir", "", "write every frame to this directory")
	f.StringP("out", "o", "-", "output file for the last frame")
	f.Bool("json", false, "write the last pose and skeleton as JSON instead of SVG")
	return cmd
}

func renderFrames(cfg *config.Config, opts renderOptions) (*animator.Frame, error) {
	if opts.Frames <= 0 {
		return nil, fmt.Errorf("frames must be positive, got %d", opts.Frames)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", opts.FPS)
	}
	state, ok := signals.ParseInteractionState(opts.State)
	if !ok {
		return nil, fmt.Errorf("unknown state %q", opts.State)
	}

	themePath := opts.Theme
	if themePath == "" {
		themePath = cfg.Theme.Path
	}
	theme := render.DefaultTheme()
	if themePath != "" {
		var err error
		if theme, err = render.LoadTheme(themePath); err != nil {
			return nil, err
		}
	}

	handle := signals.NewHandle()
	handle.OnInteractionStateChange(state)
	handle.OnLoudnessSample(opts.Loudness)
	if sig, ok := opts.signal(); ok {
		handle.OnNovaSignal(sig)
	}

	clock := rig.NewFakeClock(time.Unix(0, 0).UTC())
	r := rig.New(handle, cfg.ToRig(),
		rig.WithClock(clock),
		rig.WithRand(rand.New(rand.NewSource(opts.Seed))),
	)
	loop := animator.New(r, render.NewRenderer(theme))

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
	}

	interval := time.Second / time.Duration(opts.FPS)
	var last *animator.Frame
	for i := 0; i < opts.Frames; i++ {
		if i > 0 {
			clock.Advance(interval)
		}
		last = loop.Tick()
		if opts.Dir != "" {
			name := filepath.Join(opts.Dir, fmt.Sprintf("frame_%04d.svg", i))
			if err := os.WriteFile(name, last.Render.SVG, 0o644); err != nil {
				return nil, err
			}
		}
	}
	return last, nil
}

// signal builds the utterance signal from --text, then applies the explicit
// flags on top. ok is false when no signal flag was given.
func (o renderOptions) signal() (signals.NovaSignal, bool) {
	if o.Text == "" && o.Expression == "" && o.Gesture == "" && o.Wake == "" {
		return signals.NovaSignal{}, false
	}
	sig := signals.NovaSignal{}
	if o.Text != "" {
		sig = classifier.New().Classify(o.Text)
	}
	if o.Expression != "" {
		sig.FacialExpression = signals.Expression(o.Expression)
	}
	if o.Gesture != "" {
		sig.Gesture = signals.Gesture(o.Gesture)
	}
	if o.Wake != "" {
		sig.WakeState = signals.WakeState(o.Wake)
	}
	return sig.Normalized(), true
}

func writePose(w io.Writer, f *animator.Frame) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Seq      uint64          `json:"seq"`
		Pose     rig.Pose        `json:"pose"`
		Skeleton render.Skeleton `json:"skeleton"`
	}{f.Seq, f.Pose, f.Render.Skeleton})
}
