package serve

import (
	"context"
	"fmt"
	"os"

	"github.com/seatgeek/zip-firehose/server"
)

// App serves archives of a directory until its context ends.
type App struct {
	server *server.Server
}

// NewApp ...
func NewApp(listen, root string, level int) (*App, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	return &App{
		server: server.New(server.Config{Root: root, Listen: listen, Level: level}),
	}, nil
}

// Start ...
func (a *App) Start(ctx context.Context) error {
	return a.server.ListenAndServe(ctx)
}
