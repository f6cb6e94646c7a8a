package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/akmonengine/impulse"
	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func main() {
	configPath := flag.String("config", "", "path of a yaml physics config")
	steps := flag.Int("steps", 240, "number of frames to simulate")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	config := impulse.DefaultConfig()
	if *configPath != "" {
		var err error
		if config, err = impulse.LoadConfig(*configPath); err != nil {
			logger.Error("loading config", "error", err)
			os.Exit(1)
		}
	}

	world, err := impulse.NewWorld(config, impulse.WithLogger(logger))
	if err != nil {
		logger.Error("creating world", "error", err)
		os.Exit(1)
	}

	world.Events.Subscribe(impulse.COLLISION_ENTER, func(event impulse.Event) {
		e := event.(impulse.CollisionEnterEvent)
		logger.Info("collision enter", "bodyA", e.BodyA, "bodyB", e.BodyB)
	})
	world.Events.Subscribe(impulse.COLLISION_EXIT, func(event impulse.Event) {
		e := event.(impulse.CollisionExitEvent)
		logger.Info("collision exit", "bodyA", e.BodyA, "bodyB", e.BodyB)
	})

	ground := actor.NewRigidBody(actor.NewTransformAt(mgl64.Vec3{0, -0.5, 0}), actor.NewBox(mgl64.Vec3{10, 0.5, 10}), actor.BodyTypeStatic, 0)
	world.AddBody(ground)

	balls := make([]actor.Handle, 0, 5)
	for i := range 5 {
		ball := actor.NewRigidBody(actor.NewTransformAt(mgl64.Vec3{float64(i)*1.5 - 3, 1 + float64(i), 0}), &actor.Sphere{Radius: 0.5}, actor.BodyTypeDynamic, 1)
		ball.SetMaterial(0.4, float64(i)/4)
		balls = append(balls, world.AddBody(ball))
	}

	const frameDt = 1.0 / 60.0
	for frame := range *steps {
		report := world.Step(frameDt)

		if frame%60 == 0 {
			logger.Info("step", "frame", frame, "manifolds", report.Manifolds, "contacts", report.Contacts, "constraints", report.Constraints)
			for _, h := range balls {
				ball, _ := world.Body(h)
				logger.Info("ball", "handle", h, "position", ball.Transform.Position, "velocity", ball.LinearVelocity)
			}
		}
	}
}
