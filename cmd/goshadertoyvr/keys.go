package main

import (
	"path"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadertoyvr/assets"
	"github.com/richinsley/goshadertoyvr/glfwcontext"
	"github.com/richinsley/goshadertoyvr/overlay"
	"github.com/richinsley/goshadertoyvr/renderer"
	"go.uber.org/zap"
)

const (
	resolutionStep = 1.25
	positionStep   = 2
	moveStep       = 0.25
	turnStep       = 0.05
)

func bindKeys(win *glfwcontext.Context, r *renderer.Renderer, display *renderer.DesktopDisplay,
	hud *overlay.HUD, presets *assets.Presets, log *zap.Logger) {
	preset := func(step func() error) func() {
		return func() {
			if err := step(); err != nil {
				log.Error("Failed to switch preset", zap.Error(err))
				return
			}
			hud.SetTitle(path.Base(presets.Name(r.PresetIndex())))
		}
	}
	move := func(x, y, z float32) func() {
		return func() { r.MovePosition(mgl32.Vec3{x, y, z}) }
	}
	turn := func(yaw, pitch float32) func() {
		return func() { display.Turn(yaw, pitch) }
	}

	win.RegisterKeyCallback(glfw.KeyTab, 0, r.ToggleUI)
	win.RegisterKeyCallback(glfw.KeyPageDown, 0, preset(r.NextPreset))
	win.RegisterKeyCallback(glfw.KeyPageUp, 0, preset(r.PreviousPreset))

	win.RegisterKeyCallback(glfw.KeyEqual, 0, func() { r.ModifyResolutionScale(resolutionStep) })
	win.RegisterKeyCallback(glfw.KeyKPAdd, 0, func() { r.ModifyResolutionScale(resolutionStep) })
	win.RegisterKeyCallback(glfw.KeyMinus, 0, func() { r.ModifyResolutionScale(1 / resolutionStep) })
	win.RegisterKeyCallback(glfw.KeyKPSubtract, 0, func() { r.ModifyResolutionScale(1 / resolutionStep) })

	win.RegisterKeyCallback(glfw.KeyRightBracket, 0, func() { r.ModifyPositionScale(positionStep) })
	win.RegisterKeyCallback(glfw.KeyLeftBracket, 0, func() { r.ModifyPositionScale(1.0 / positionStep) })
	win.RegisterKeyCallback(glfw.Key0, 0, r.ResetPositionScale)

	win.RegisterKeyCallback(glfw.KeyR, 0, r.RestartTime)
	win.RegisterKeyCallback(glfw.KeySpace, 0, r.Recenter)

	win.RegisterKeyCallback(glfw.KeyW, 0, move(0, 0, -moveStep))
	win.RegisterKeyCallback(glfw.KeyS, 0, move(0, 0, moveStep))
	win.RegisterKeyCallback(glfw.KeyA, 0, move(-moveStep, 0, 0))
	win.RegisterKeyCallback(glfw.KeyD, 0, move(moveStep, 0, 0))
	win.RegisterKeyCallback(glfw.KeyQ, 0, move(0, -moveStep, 0))
	win.RegisterKeyCallback(glfw.KeyE, 0, move(0, moveStep, 0))

	win.RegisterKeyCallback(glfw.KeyLeft, 0, turn(turnStep, 0))
	win.RegisterKeyCallback(glfw.KeyRight, 0, turn(-turnStep, 0))
	win.RegisterKeyCallback(glfw.KeyUp, 0, turn(0, turnStep))
	win.RegisterKeyCallback(glfw.KeyDown, 0, turn(0, -turnStep))

	win.RegisterKeyCallback(glfw.KeyS, glfw.ModControl, func() {
		r.SaveDocument("shader-" + time.Now().Format("20060102-150405"))
	})
}
