package headshot

import (
	"image"
	"io"
	"os"
	"time"

	"github.com/esimov/headshot/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Execute runs the whole pipeline over the files named by cfg:
// it reads the photo and the template, composites the detected face and writes
// the output image. A partially written output file is removed on failure.
//
// The Processor detector is used when set. Otherwise NewDetector builds one
// for cfg.Backend. The processor itself is left untouched.
func (p *Processor) Execute(cfg Config) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := outputFormat(cfg.OutputPath); err != nil {
		return &ConfigError{Err: errors.Wrapf(err, "output %s", cfg.OutputPath)}
	}

	runLog := p.runLogger()
	now := time.Now()

	detector := p.Detector
	if detector == nil && p.NewDetector != nil {
		if detector, err = p.NewDetector(cfg); err != nil {
			return err
		}
		runLog.WithField("backend", cfg.Backend).Debug("face detector loaded")

		if c, ok := detector.(io.Closer); ok {
			defer func() {
				if cerr := c.Close(); cerr != nil && err == nil {
					err = &InferenceError{Err: errors.Wrap(cerr, "could not release the face detector")}
				}
			}()
		}
	}

	if p.Spinner != nil {
		p.Spinner.Start()
		defer p.Spinner.Stop()
	}

	photo, err := decodeImg(cfg.PhotoPath)
	if err != nil {
		return &ResourceLoadError{Resource: "photo", Path: cfg.PhotoPath, Err: err}
	}
	template, err := decodeImg(cfg.TemplatePath)
	if err != nil {
		return &ResourceLoadError{Resource: "template", Path: cfg.TemplatePath, Err: err}
	}
	runLog.WithFields(logrus.Fields{
		"photo":    cfg.PhotoPath,
		"template": cfg.TemplatePath,
	}).Debug("inputs decoded")

	out, err := p.composite(runLog, detector, cfg.Params, photo, template)
	if err != nil {
		return err
	}

	if err := writeImg(runLog, cfg.OutputPath, out); err != nil {
		return &OutputWriteError{Path: cfg.OutputPath, Err: err}
	}
	runLog.WithFields(logrus.Fields{
		"output":  cfg.OutputPath,
		"elapsed": utils.FormatTime(time.Since(now)),
	}).Info("skin written")

	return nil
}

// writeImg encodes img into the file at path, removing the file in case of an error.
func writeImg(log logrus.FieldLogger, path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err == nil {
			return
		}
		if rerr := os.Remove(path); rerr != nil {
			log.WithError(rerr).WithField("output", path).Warn("could not remove the unfinished output file")
			return
		}
		log.WithField("output", path).Debug("unfinished output file removed")
	}()

	return encodeImg(f, img)
}
