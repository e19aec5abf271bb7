// Command dvs-server runs the HTTP CAS server (spec §4.11): a standalone
// object store serving /objects/{algo}/{hex} over HTTP for clients whose
// remote configuration points at it.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"

	"github.com/a2-ai/dvs/internal/server"
	"github.com/a2-ai/dvs/internal/version"
)

var showVersion bool

func init() {
	flag.BoolVar(&showVersion, "version", false, "show the version and exit")
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (%s)\n", version.Package(), version.Version(), version.Revision())
		return
	}

	cfg, err := resolveConfig()
	if err != nil {
		fatalf("configuration error: %v", err)
	}

	app, err := server.NewApp(cfg)
	if err != nil {
		fatalf("error constructing server: %v", err)
	}

	handler := handlers.CombinedLoggingHandler(os.Stdout, app.Handler())

	logrus.Infof("dvs-server listening on %s, root=%s", cfg.Addr, cfg.Root)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logrus.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:", os.Args[0], "<config.yaml>")
	flag.PrintDefaults()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	usage()
	os.Exit(1)
}

func resolveConfig() (server.Config, error) {
	if flag.NArg() > 0 {
		return server.LoadConfig(flag.Arg(0))
	}
	if path := os.Getenv("DVS_SERVER_CONFIG"); path != "" {
		return server.LoadConfig(path)
	}
	return server.Config{}, fmt.Errorf("configuration path unspecified: pass <config.yaml> or set DVS_SERVER_CONFIG")
}
