package normalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"voice-memos-go/internal/media"
	"voice-memos-go/internal/types"
)

// Outcome is the result of one repair attempt.
type Outcome struct {
	Strategy string
	Path     string
	Size     int64
	Duration float64
	Err      error
}

func (o Outcome) OK() bool { return o.Err == nil }

var ErrUnrepairable = errors.New("no repair strategy produced a usable file")

// Repair runs every repair strategy against a damaged recording, writing
// <base>_repaired<ext> files into outputDir. All outcomes are reported; the
// error is ErrUnrepairable only when every attempt failed.
func (n *Normalizer) Repair(ctx context.Context, asset types.AudioAsset, outputDir string) ([]Outcome, error) {
	asset, err := media.Require(asset)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	strategies := RepairStrategies()
	outcomes := make([]Outcome, 0, len(strategies))
	succeeded := 0
	for _, s := range strategies {
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Strategy: s.Name, Err: ctx.Err()})
			continue
		}
		out := filepath.Join(outputDir, asset.Base()+"_repaired"+s.Ext)

		// Repair always probes generously, whatever the container claims to be.
		res, err := n.encode(ctx, asset, s, out, true)
		o := Outcome{Strategy: s.Name, Path: out, Err: err}
		if err == nil {
			o.Size = res.Size
			succeeded++
			if n.prober != nil {
				if pr, perr := n.prober.Probe(ctx, res); perr == nil {
					o.Duration = pr.DurationSeconds
				}
			}
		} else {
			o.Path = ""
		}

		n.log.WithFields(logrus.Fields{
			"strategy": s.Name,
			"ok":       o.OK(),
			"bytes":    o.Size,
		}).Info("repair attempt finished")
		outcomes = append(outcomes, o)
	}

	if succeeded == 0 {
		return outcomes, ErrUnrepairable
	}
	return outcomes, nil
}
