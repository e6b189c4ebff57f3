// Command camview lists the scene objects visible from a camera, or serves
// the same query over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"camview/internal/config"
	"camview/internal/profiling"
	"camview/internal/server"
	"camview/internal/visibility"
	"camview/pkg/scenefile"

	"github.com/xlab/closer"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type output struct {
	Camera   string           `json:"camera" yaml:"camera"`
	Objects  []string         `json:"objects" yaml:"objects"`
	Stats    visibility.Stats `json:"stats" yaml:"stats"`
	Failures []string         `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("camview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: camview [flags] [camera]")
		fs.PrintDefaults()
	}
	cfgPath := fs.String("config", "", "YAML settings file")
	scenesDir := fs.String("scenes", "", "directory holding scene documents (overrides config)")
	sceneName := fs.String("scene", "", "scene document to query")
	strict := fs.Bool("strict", false, "abort on the first failed scene query")
	overscan := fs.Bool("overscan", false, "apply camera overscan to the frustum")
	squeeze := fs.Bool("squeeze", true, "apply the lens squeeze ratio to the frustum")
	format := fs.String("format", "text", "output format: text, json or yaml")
	profile := fs.Bool("profile", false, "print timings to stderr")
	serve := fs.String("serve", "", "serve HTTP on this address instead of running one query")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	settings, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scenes":
			settings.Scenes.Dir = *scenesDir
		case "strict":
			settings.Visibility.Strict = *strict
		case "overscan":
			settings.Visibility.ApplyOverscan = *overscan
		case "squeeze":
			settings.Visibility.ApplySqueeze = *squeeze
		case "serve":
			settings.Server.Addr = *serve
		}
	})

	log, err := config.NewLogger(settings.Log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	defer log.Sync()

	src, err := newSource(settings.Scenes)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	loader := scenefile.NewLoader(src, settings.Scenes.Validate)

	if *serve != "" {
		return serveHTTP(loader, settings, log)
	}

	switch *format {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return exitUsage
	}
	if *sceneName == "" {
		fmt.Fprintln(stderr, "-scene is required")
		fs.Usage()
		return exitUsage
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "at most one camera may be given")
		return exitUsage
	}

	var prof *profiling.Profile
	if *profile {
		prof = profiling.New()
	}

	doneLoad := prof.Track("scene.Load")
	doc, err := loader.LoadDocument(context.Background(), *sceneName)
	if err != nil {
		doneLoad()
		fmt.Fprintln(stderr, err)
		return exitError
	}
	g, err := scenefile.Build(doc)
	doneLoad()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	res, err := visibility.ObjectsInCamera(g, visibility.Request{
		Camera:    fs.Arg(0),
		Selection: doc.Selection,
	},
		visibility.WithLogger(log),
		visibility.WithStrict(settings.Visibility.Strict),
		visibility.WithOverscan(settings.Visibility.ApplyOverscan),
		visibility.WithSqueeze(settings.Visibility.ApplySqueeze),
		visibility.WithProfile(prof),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		if visibility.IsArgumentError(err) {
			return exitUsage
		}
		return exitError
	}

	if err := write(stdout, *format, res); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	for _, f := range res.Failures {
		fmt.Fprintln(stderr, "warning:", f)
	}
	if prof != nil {
		fmt.Fprintln(stderr, prof.TopN(10))
	}
	return exitOK
}

func newSource(cfg config.Scenes) (scenefile.Source, error) {
	if m := cfg.Minio; m != nil {
		return scenefile.NewMinioSource(scenefile.MinioOptions{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			UseSSL:    m.UseSSL,
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
		})
	}
	return scenefile.DirSource{Root: cfg.Dir}, nil
}

func write(w io.Writer, format string, res *visibility.Result) error {
	out := output{
		Camera:  res.Camera,
		Objects: res.Objects,
		Stats:   res.Stats,
	}
	if out.Objects == nil {
		out.Objects = []string{}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, f.Error())
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		for _, o := range out.Objects {
			if _, err := fmt.Fprintln(w, o); err != nil {
				return err
			}
		}
		return nil
	}
}

// serveHTTP blocks until the process is interrupted.
func serveHTTP(loader *scenefile.Loader, settings *config.Settings, log *zap.Logger) int {
	srv := server.New(loader, settings.Visibility, log).HTTPServer(settings.Server)

	closer.Bind(func() {
		ctx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
		log.Info("server stopped")
		log.Sync()
	})

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			closer.Exit(exitError)
		}
	}()
	closer.Hold()
	return exitOK
}
