package body

import (
	"context"
	"fmt"
)

// SelfTestPulse is how long each joint is driven during the self test, in
// ticks.
const SelfTestPulse = 10

// SelfTest returns the bring-up sequence: every joint both ways, the hip both
// ways, then blinks hand lights.
func SelfTest(blinks int) []Command {
	joints := []ActionKind{
		LeftUpperArm, RightUpperArm, LeftLowerArm, RightLowerArm,
		LeftLeg, RightLeg, Hip,
	}

	var seq []Command
	for _, dir := range []bool{true, false} {
		for _, a := range joints {
			seq = append(seq, Command{Action: a, Direction: dir, Value: SelfTestPulse})
		}
	}
	for _, light := range []ActionKind{LeftHandLight, RightHandLight} {
		for i := 0; i < blinks; i++ {
			seq = append(seq,
				Command{Action: light, Direction: true},
				Command{Action: light, Direction: false},
			)
		}
	}
	return seq
}

// RunSelfTest submits the self test sequence in order. It returns the IDs of
// the queued commands.
func RunSelfTest(ctx context.Context, d *Dispatcher, blinks int) ([]string, error) {
	seq := SelfTest(blinks)
	ids := make([]string, 0, len(seq))
	for i, cmd := range seq {
		queued, err := d.Submit(ctx, cmd)
		if err != nil {
			return ids, fmt.Errorf("body: self test step %d (%s): %w", i+1, cmd, err)
		}
		ids = append(ids, queued.ID)
	}
	return ids, nil
}
