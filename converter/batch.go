package converter

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tiffstack/contracts"
	"tiffstack/files_manager"
	"tiffstack/policy"
	"tiffstack/utils"
)

type teeSink struct {
	sinks []contracts.DiagnosticsSink
}

func (t teeSink) Emit(d contracts.Diagnostic) {
	for _, s := range t.sinks {
		s.Emit(d)
	}
}

// ConvertFolders stacks every folder of the request into one TIFF file.
// A failing folder does not stop the others; its error is reported in the
// folder's result. Results keep the order of req.Folders.
func ConvertFolders(ctx context.Context, req contracts.ConversionRequest, params policy.Params, opts Options, log *zap.SugaredLogger) ([]contracts.ConvertResult, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	maxConversions := req.Workers
	if maxConversions < 1 {
		maxConversions = max(runtime.NumCPU()-1, 1)
	}

	results := make([]contracts.ConvertResult, len(req.Folders))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConversions)

	for i, folder := range req.Folders {
		i, folder := i, folder
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = contracts.ConvertResult{Folder: folder.Name, Err: err}
				return err
			}
			results[i] = convertFolder(folder, req, params, opts, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func convertFolder(folder contracts.TIFFfolder, req contracts.ConversionRequest, params policy.Params, opts Options, log *zap.SugaredLogger) contracts.ConvertResult {
	res := contracts.ConvertResult{
		Folder:     folder.Name,
		OutputPath: files_manager.OutputPath(req.OutputDir, folder.Name, req.Profile),
	}
	log = log.With("folder", folder.Name)

	img, err := LoadStack(folder, 1)
	if err != nil {
		res.Err = fmt.Errorf("error loading %s: %w", folder.Path, err)
		log.Errorw("loading failed", "error", err)
		return res
	}

	if params.PixelSize == nil {
		if size, err := utils.GetPixelSize(folder.TiffFilesPaths[0]); err == nil {
			params.PixelSize = &size
		} else {
			log.Debugw("no pixel size found", "file", folder.TiffFilesPaths[0], "error", err)
		}
	}

	collector := &contracts.Collector{}
	folderOpts := opts
	folderOpts.Sink = teeSink{sinks: []contracts.DiagnosticsSink{collector, opts.sink()}}

	cfg, err := WriteFile(res.OutputPath, img, req.Profile, params, folderOpts)
	res.Diagnostics = collector.Diagnostics()
	if err != nil {
		res.Err = err
		log.Errorw("conversion failed", "output", res.OutputPath, "error", err)
		return res
	}
	res.Pages = cfg.Shape.Pages()
	log.Infow("converted", "output", res.OutputPath, "pages", res.Pages, "shape", cfg.Shape.String())
	return res
}
