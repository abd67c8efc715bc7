// Command steprun executes one named trajectory or waypoint sequence from
// the shell, with a spinner reporting phase and progress.  It is the bench
// tool for checking a motion config before handing it to stepsrv.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/theckman/yacspin"

	"github.com/motionlab/stepmotion/config"
	"github.com/motionlab/stepmotion/gpiolink"
	"github.com/motionlab/stepmotion/motion"
	"github.com/motionlab/stepmotion/stepper"
	"github.com/motionlab/stepmotion/trajectory"
)

func main() {
	var (
		cfgPath  = flag.String("config", "stepsrv.yml", "path to the motion config file")
		trjName  = flag.String("trajectory", "", "name of the trajectory to run")
		seqName  = flag.String("sequence", "", "name of the waypoint sequence to run")
		mock     = flag.Bool("mock", false, "drive simulated pins instead of the breakout")
		addr     = flag.String("addr", "", "breakout address, host:port or serial device path")
		isSerial = flag.Bool("serial", false, "breakout link is serial, not TCP")
		stepPin  = flag.Uint("step-pin", 0, "breakout pin number for STEP")
		dirPin   = flag.Uint("dir-pin", 1, "breakout pin number for DIR")
	)
	flag.Parse()
	if (*trjName == "") == (*seqName == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -trajectory or -sequence is required")
		flag.Usage()
		os.Exit(2)
	}

	sys, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	reg := sys.Registry()

	motorName := ""
	runName := *trjName
	var trj trajectory.Trajectory
	if *trjName != "" {
		t, err := reg.Get(*trjName)
		if err != nil {
			log.Fatal(err)
		}
		trj = t
		motorName = t.Motor
	} else {
		s, err := reg.GetSequence(*seqName)
		if err != nil {
			log.Fatal(err)
		}
		motorName = s.Motor
		runName = *seqName
	}

	mc, ok := sys.MotorNamed(motorName)
	if !ok {
		log.Fatalf("config has no motor %s", motorName)
	}
	cons, err := mc.Constraints()
	if err != nil {
		log.Fatal(err)
	}
	motor, err := buildMotor(mc, cons, *mock, *addr, *isSerial, byte(*stepPin), byte(*dirPin))
	if err != nil {
		log.Fatal(err)
	}

	if *trjName != "" {
		// the bench motor starts at origin, so the first leg is the whole move
		p, err := motion.Plan(cons.DegreesToSteps(trj.TargetDegrees),
			trj.EffectiveVelocity(cons),
			trj.EffectiveAcceleration(cons),
			trj.EffectiveDeceleration(cons))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s: %d steps, est %.2f s\n", runName, p.Steps(), p.EstimatedDuration())
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[11],
		Suffix:          " " + runName,
		SuffixAutoColon: true,
		Message:         "starting",
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()

	exec := &trajectory.Executor{
		Motor:    motor,
		Registry: reg,
		Progress: func(name string, frac float64) {
			spinner.Message(fmt.Sprintf("%s %-12s %3.0f%%  %.2f deg", name, motor.Phase(), frac*100, motor.PositionDegrees()))
		},
	}
	if *trjName != "" {
		err = exec.Run(*trjName)
	} else {
		err = exec.RunSequence(*seqName)
	}
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		os.Exit(1)
	}
	spinner.StopMessage(fmt.Sprintf("done at %.2f deg", motor.PositionDegrees()))
	spinner.Stop()
}

func buildMotor(mc config.Motor, cons stepper.Constraints, mock bool, addr string, isSerial bool, stepPin, dirPin byte) (*stepper.Motor, error) {
	cfg := stepper.DeviceConfig{
		Name:            mc.Name,
		Constraints:     cons,
		InvertDirection: mc.InvertDirection,
		BacklashDegrees: mc.BacklashCompensationDeg,
	}
	if mock {
		cfg.Step = stepper.NewSimPin()
		cfg.Dir = stepper.NewSimPin()
		cfg.Delay = stepper.WallDelay{}
		return stepper.New(cfg)
	}
	bk := gpiolink.NewBreakout(addr, isSerial)
	if err := bk.Open(); err != nil {
		return nil, err
	}
	cfg.Step = bk.Pin(stepPin)
	cfg.Dir = bk.Pin(dirPin)
	cfg.Delay = bk.Delayer()
	return stepper.New(cfg)
}
