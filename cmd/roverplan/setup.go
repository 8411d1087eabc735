package main

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/roverplan/pkg/robot"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("roverplan setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Ignoring %s: %v", opts.Config, err)))
		cfg = robot.DefaultConfig()
	}

	if _, err := os.Stat(opts.Config); err == nil {
		overwrite := false
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s exists. Overwrite it?", opts.Config)).
				Value(&overwrite),
		))
		if err := form.Run(); err != nil || !overwrite {
			fmt.Println("Nothing changed.")
			return nil
		}
	}

	kind := string(cfg.Shape.Kind)
	var shapeOptions []huh.Option[string]
	for _, k := range robot.AllShapeKinds() {
		shapeOptions = append(shapeOptions, huh.NewOption(string(k), string(k)))
	}
	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Robot footprint").
			Options(shapeOptions...).
			Value(&kind),
	)).Run(); err != nil {
		fmt.Println()
		return nil
	}

	radius := fmtFloat(orDefault(cfg.Shape.Radius, 1.0))
	length := fmtFloat(orDefault(cfg.Shape.Length, 1.2))
	width := fmtFloat(orDefault(cfg.Shape.Width, 0.5))
	maxSpeed := fmtFloat(cfg.MaxSpeed)
	maxYaw := fmtFloat(cfg.MaxYawRate * 180 / math.Pi)
	checkTime := fmtFloat(cfg.CheckTime)

	var dims *huh.Group
	if robot.ShapeKind(kind) == robot.ShapeCircle {
		dims = huh.NewGroup(
			huh.NewInput().Title("Radius (m)").Value(&radius).Validate(positive),
		)
	} else {
		dims = huh.NewGroup(
			huh.NewInput().Title("Length along the heading (m)").Value(&length).Validate(positive),
			huh.NewInput().Title("Width (m)").Value(&width).Validate(positive),
		)
	}
	limits := huh.NewGroup(
		huh.NewInput().Title("Maximum speed (m/s)").Value(&maxSpeed).Validate(positive),
		huh.NewInput().Title("Maximum yaw rate (°/s)").Value(&maxYaw).Validate(positive),
		huh.NewInput().
			Title("Collision check horizon (s)").
			Description("Longer horizons are safer and slower").
			Value(&checkTime).
			Validate(positive),
	)
	if err := huh.NewForm(dims, limits).Run(); err != nil {
		fmt.Println()
		return nil
	}

	if robot.ShapeKind(kind) == robot.ShapeCircle {
		cfg.Shape = robot.Circle(mustFloat(radius))
	} else {
		cfg.Shape = robot.Rectangle(mustFloat(length), mustFloat(width))
	}
	cfg.MaxSpeed = mustFloat(maxSpeed)
	cfg.MaxYawRate = mustFloat(maxYaw) * math.Pi / 180
	cfg.CheckTime = mustFloat(checkTime)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Try it with: " + headerStyle.Render("roverplan watch"))
	return nil
}

func positive(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// mustFloat parses input that already passed positive.
func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
