// Copyright © 2018 DigitalGlobe
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/preligens-lab/buzzard/pkg/cache/localstore"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/footprint"
	"github.com/preligens-lab/buzzard/pkg/scheduler"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

var queryCmd = &cobra.Command{
	Use:   "query <raster-id> <out-dir>",
	Short: "register a recipe raster backed by a remote tile service and drain one query for it to local files",
	Long: `query registers a raster whose pixels come from a remote tile
service (the same graph/node/tile URL shape RDA itself exposes), posts a
single query covering the raster's full extent, and writes each delivered
sub-array to out-dir as it arrives, reporting progress with a bar.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rasterID, outDir := args[0], args[1]
		tileSize, _ := cmd.Flags().GetInt("tile-size")
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		channels, _ := cmd.Flags().GetStringSlice("channels")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if err := os.MkdirAll(outDir, 0o777); err != nil {
			return errors.Wrapf(err, "failed creating output directory %s", outDir)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigs:
				cancel()
			case <-ctx.Done():
			}
		}()

		config, err := newConfig()
		if err != nil {
			return errors.Wrap(err, "failed loading credentials")
		}

		cacheDir, err := ensureBuzzardDir()
		if err != nil {
			return err
		}
		store, err := localstore.New(filepath.Join(cacheDir, "cache"))
		if err != nil {
			return err
		}

		recipe := compute.NewHTTPRecipe(config.tokenSource())
		recipe.URL = func(rasterID string, col, row int, channels []string) string {
			return fmt.Sprintf("%s/tile/%s/%d/%d.raw", endpoint, rasterID, col, row)
		}
		recipe.Decode = rawDecode

		ioPool := workerpool.NewThreadPool(concurrency)
		computePool := workerpool.NewThreadPool(concurrency)
		resamplePool := workerpool.NewThreadPool(concurrency)

		s := scheduler.New()
		go s.Run(ctx)

		if _, err := s.RegisterRaster(scheduler.RasterSpec{
			ID:                 rasterID,
			Transform:          footprint.Transform{ScaleX: 1, ScaleY: 1},
			Width:              width,
			Height:             height,
			Channels:           channels,
			TileWidth:          tileSize,
			TileHeight:         tileSize,
			ComputeFunc:        recipe.Func,
			ComputeFuncVersion: "v1",
			Store:              store,
			IOPool:             ioPool,
			ComputePool:        computePool,
			ResamplePool:       resamplePool,
		}); err != nil {
			return errors.Wrap(err, "failed registering raster")
		}
		defer s.CloseRaster(rasterID)

		handle, err := s.PostQuery("cli", scheduler.QuerySpec{
			RasterID:      rasterID,
			Footprint:     footprint.Footprint{Transform: footprint.Transform{ScaleX: 1, ScaleY: 1}, Width: width, Height: height},
			Channels:      channels,
			Ordering:      scheduler.OrderRowMajor,
			QueueCapacity: concurrency,
		})
		if err != nil {
			return errors.Wrap(err, "failed posting query")
		}

		numTiles := ((width + tileSize - 1) / tileSize) * ((height + tileSize - 1) / tileSize)
		bar := pb.StartNew(numTiles)
		for {
			res := handle.Next()
			if res.Done {
				if res.Err != nil {
					bar.FinishPrint("query failed; rerun to retry the tiles that hadn't been delivered yet.")
					return res.Err
				}
				bar.FinishPrint(fmt.Sprintf("drained %d tiles for raster %s to %s", numTiles, rasterID, outDir))
				return nil
			}
			if err := writeArray(outDir, res.Seq, res.Array); err != nil {
				return err
			}
			bar.Increment()
		}
	},
}

func init() {
	queryCmd.Flags().Int("tile-size", 256, "native tile width/height for the raster's cache grid")
	queryCmd.Flags().Int("width", 1024, "raster width in pixels")
	queryCmd.Flags().Int("height", 1024, "raster height in pixels")
	queryCmd.Flags().StringSlice("channels", []string{"red", "green", "blue"}, "channel names to request")
	queryCmd.Flags().String("endpoint", "https://rda.geobigdata.io/v1", "base URL of the remote tile service")
	queryCmd.Flags().Int("concurrency", 4, "worker pool concurrency for I/O, compute, and resample pools")
	rootCmd.AddCommand(queryCmd)
}

// rawDecode reads width*height bytes per channel with no header, the
// layout a bare tile-pixel endpoint would serve (as opposed to
// compute.Decode's on-disk cache layout, which carries its own header).
func rawDecode(body io.Reader, channels []string, width, height int) (compute.Array, error) {
	planeLen := width * height
	data := make([][]byte, len(channels))
	for i := range data {
		buf := make([]byte, planeLen)
		if _, err := io.ReadFull(body, buf); err != nil {
			return compute.Array{}, errors.Wrapf(err, "failed reading channel %d of %dx%d tile body", i, width, height)
		}
		data[i] = buf
	}
	return compute.Array{Channels: channels, Width: width, Height: height, Data: data}, nil
}

// writeArray writes one delivered sub-array's channel planes to
// outDir/<seq>.<channel>.raw.
func writeArray(outDir string, seq int, a compute.Array) error {
	for i, ch := range a.Channels {
		path := filepath.Join(outDir, fmt.Sprintf("%d.%s.raw", seq, ch))
		if err := os.WriteFile(path, a.Data[i], 0o666); err != nil {
			return errors.Wrapf(err, "failed writing %s", path)
		}
	}
	return nil
}
