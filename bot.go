/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	dragCycle   = 6 * time.Second
	dragStart   = 2 * time.Second
	dragEnd     = 5 * time.Second
	reportEvery = 5 * time.Second
)

// runBots starts bot.count simulated users, each with its own connection
// and throttle, and waits for all of them.
func runBots(ctx context.Context, cfg *Config, bot *BotConfig) error {
	if bot.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bot.duration)
		defer cancel()
	}

	logf(cfg, "BOT: Starting %d user(s) in room %q against %s", bot.count, bot.room, bot.url)

	g, ctx := errgroup.WithContext(ctx)
	for i := range bot.count {
		name := bot.username
		if bot.count > 1 {
			name = fmt.Sprintf("%s-%d", bot.username, i+1)
		}

		g.Go(func() error {
			return runBot(ctx, cfg, bot, name, i)
		})
	}

	return g.Wait()
}

func runBot(ctx context.Context, cfg *Config, bot *BotConfig, name string, seed int) error {
	c := newClient(cfg, name, bot.room, newThrottle(bot.sendInterval, nil))
	if err := c.dial(ctx, bot.url); err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		readErr <- c.readLoop()
	}()

	go c.cursors.animate(ctx, bot.frameRate)

	frames := time.NewTicker(time.Second / time.Duration(bot.frameRate))
	defer frames.Stop()

	report := time.NewTicker(reportEvery)
	defer report.Stop()

	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			_ = c.release()

			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("%s: connection lost: %w", name, err)
		case now := <-frames.C:
			if err := c.wander(seed, now.Sub(start)); err != nil {
				return fmt.Errorf("%s: send failed: %w", name, err)
			}
		case <-report.C:
			held := 0
			for _, o := range c.objectsSnapshot() {
				if o.Held() {
					held++
				}
			}
			logf(cfg, "BOT: %s sees %d cursor(s), %d held object(s), dragging %q",
				name, c.cursors.len(), held, c.draggingID())
		}
	}
}

// wander advances the simulated pointer along its path. For part of every
// cycle it grabs the nearest free object and drags it along.
func (c *client) wander(seed int, elapsed time.Duration) error {
	x, y := wanderPath(seed, elapsed)

	phase := (elapsed + time.Duration(seed)*time.Second) % dragCycle
	dragging := c.draggingID() != ""

	switch {
	case phase >= dragStart && phase < dragEnd:
		if !dragging {
			if id, ok := nearestFree(c.objectsSnapshot(), x, y); ok {
				if err := c.pick(id); err != nil {
					return err
				}
			}
		}
	case dragging:
		if err := c.release(); err != nil {
			return err
		}
	}

	return c.movePointer(x, y)
}

// wanderPath is a Lissajous curve over roughly an 800x600 area, offset per
// seed so bots do not overlap.
func wanderPath(seed int, elapsed time.Duration) (float64, float64) {
	t := elapsed.Seconds()
	phase := float64(seed) * 0.9

	x := 400 + 300*math.Sin(0.7*t+phase)
	y := 300 + 200*math.Sin(1.1*t+2*phase)
	return x, y
}

func nearestFree(objects []SharedObject, x, y float64) (string, bool) {
	best := ""
	bestDist := math.Inf(1)
	for _, o := range objects {
		if o.Held() {
			continue
		}
		if d := math.Hypot(o.X-x, o.Y-y); d < bestDist {
			best, bestDist = o.ID, d
		}
	}
	return best, best != ""
}
