// Command simclient is a headless Hordegrounds client for exercising the
// relay protocol without a game client: it hosts or joins a room, pushes a
// synthetic pose at the normal broadcast rate, and logs everything the
// relay sends back.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wcastello/hordegrounds/client"
	"github.com/wcastello/hordegrounds/protocol"
)

func main() {
	cmd := &cli.Command{
		Name:  "simclient",
		Usage: "headless Hordegrounds client for protocol testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Value: "ws://localhost:8080/ws",
				Usage: "relay websocket URL",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log every relayed frame",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "host",
				Usage: "create a room and print its code",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSession(ctx, cmd, "")
				},
			},
			{
				Name:      "join",
				Usage:     "join an existing room by code",
				ArgsUsage: "ROOMCODE",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					code := cmd.Args().First()
					if code == "" {
						return fmt.Errorf("usage: simclient join ROOMCODE")
					}
					return runSession(ctx, cmd, code)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runSession connects, creates or joins a room, and relays until the
// session ends or the process is interrupted.
func runSession(ctx context.Context, cmd *cli.Command, joinCode string) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	game := &simGame{logger: logger, started: time.Now(), ended: cancel}
	mgr := client.NewManager(cmd.String("server"), game, logger)

	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	defer mgr.Disconnect()

	if joinCode == "" {
		err = mgr.CreateRoom()
	} else {
		err = mgr.JoinRoom(joinCode)
	}
	if err != nil {
		return err
	}

	if err := waitForRoom(ctx, mgr); err != nil {
		return err
	}

	if mgr.IsHost() {
		fmt.Printf("Room code: %s\n", mgr.RoomCode())
	}
	logger.Info("session running",
		zap.String("room", mgr.RoomCode()),
		zap.Bool("host", mgr.IsHost()))

	<-ctx.Done()
	logger.Info("session finished", zap.Int("peersSeen", game.peersSeen))
	return nil
}

// waitForRoom polls the manager until the room handshake settles. A join
// rejection drops the manager back to Connected, which we surface as an
// error here.
func waitForRoom(ctx context.Context, mgr *client.Manager) error {
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("timed out waiting for room handshake")
		case <-tick.C:
			switch mgr.State() {
			case client.StateInRoom:
				return nil
			case client.StateConnected:
				return fmt.Errorf("room request rejected by relay")
			case client.StateDisconnected:
				return fmt.Errorf("connection lost during room handshake")
			}
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return cfg.Build()
}

// simGame is the Game collaborator for a headless session: the local player
// walks a slow circle and every remote effect is just logged.
type simGame struct {
	logger    *zap.Logger
	started   time.Time
	ended     context.CancelFunc
	peersSeen int
}

func (g *simGame) LocalPose() (protocol.Vec3, protocol.Vec3) {
	t := time.Since(g.started).Seconds() / 10
	pos := protocol.Vec3{X: 5 * math.Cos(t), Y: 1, Z: 5 * math.Sin(t)}
	rot := protocol.Vec3{Y: t}
	return pos, rot
}

func (g *simGame) RenderRemotePeer(id string, position, rotation protocol.Vec3) {
	g.peersSeen++
	g.logger.Info("peer appeared",
		zap.String("peer", id),
		zap.Float64("x", position.X),
		zap.Float64("z", position.Z))
}

func (g *simGame) MoveRemotePeer(id string, position, rotation protocol.Vec3) {
	g.logger.Debug("peer moved",
		zap.String("peer", id),
		zap.Float64("x", position.X),
		zap.Float64("z", position.Z))
}

func (g *simGame) RemoveRemotePeer(id string) {
	g.logger.Info("peer removed", zap.String("peer", id))
}

func (g *simGame) ApplyHostGameState(state json.RawMessage) {
	g.logger.Info("game state received", zap.Int("bytes", len(state)))
}

func (g *simGame) DispatchHordeCommand(action string, data json.RawMessage) {
	g.logger.Info("horde command", zap.String("action", action), zap.ByteString("data", data))
}

// SessionEnded implements client.Notifier so a hostLeft shuts the process
// down instead of idling forever.
func (g *simGame) SessionEnded(reason string) {
	g.logger.Warn("session ended", zap.String("reason", reason))
	g.ended()
}

func (g *simGame) ServerError(message string) {
	g.logger.Warn("relay error", zap.String("message", message))
}
