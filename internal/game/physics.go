package game

// Jitter magnitudes applied on bounces so perfectly aligned trajectories
// cannot cycle forever.
const (
	wallJitter   = 0.05
	paddleJitter = 0.10
	maxHitOffset = 0.8
)

// StepResult reports what a single physics tick produced.
type StepResult struct {
	// ScoredBy is 0 for no score, 1 when the left player scored, 2 for right.
	ScoredBy int
	Collided bool
}

// step advances the simulation by one fixed timestep. Velocities are in
// units per rendered frame at 60 fps, so positions move by v*dt*60.
// Caller holds the room lock.
func (r *Room) step(dt float64) StepResult {
	var res StepResult
	ball := &r.Ball
	scale := dt * 60

	ball.PrevX = ball.X
	ball.PrevY = ball.Y
	ball.X += ball.DX * scale
	ball.Y += ball.DY * scale

	// Top and bottom walls. Only flip when the ball is moving into the wall,
	// otherwise a ball trapped in the margin would oscillate every tick.
	if ball.Y-ball.Radius <= 0 && ball.DY < 0 {
		ball.DY = -ball.DY + (r.rng.Float64()*2-1)*wallJitter
		res.Collided = true
	} else if ball.Y+ball.Radius >= BaseHeight && ball.DY > 0 {
		ball.DY = -ball.DY + (r.rng.Float64()*2-1)*wallJitter
		res.Collided = true
	}

	if r.collideLeftPaddle() || r.collideRightPaddle() {
		res.Collided = true
	}

	// Scoring: ball fully past a goal line.
	if ball.X+ball.Radius < 0 {
		r.RightPaddle.Score++
		r.resetBall(1)
		res.ScoredBy = 2
	} else if ball.X-ball.Radius > BaseWidth {
		r.LeftPaddle.Score++
		r.resetBall(-1)
		res.ScoredBy = 1
	}

	return res
}

func (r *Room) collideLeftPaddle() bool {
	ball := &r.Ball
	p := &r.LeftPaddle
	ballLeft := ball.X - ball.Radius
	if ballLeft > p.X+p.Width || ballLeft <= p.X || ball.DX >= 0 {
		return false
	}
	if ball.Y < p.Y || ball.Y > p.Y+p.Height {
		return false
	}
	r.bounceOffPaddle(p, 1)
	return true
}

func (r *Room) collideRightPaddle() bool {
	ball := &r.Ball
	p := &r.RightPaddle
	ballRight := ball.X + ball.Radius
	if ballRight < p.X || ballRight >= p.X+p.Width || ball.DX <= 0 {
		return false
	}
	if ball.Y < p.Y || ball.Y > p.Y+p.Height {
		return false
	}
	r.bounceOffPaddle(p, -1)
	return true
}

// bounceOffPaddle reflects the ball, angles it by where it struck the
// paddle face, and speeds it up toward the difficulty cap.
func (r *Room) bounceOffPaddle(p *Paddle, direction float64) {
	ball := &r.Ball

	hit := (ball.Y - (p.Y + p.Height/2)) / (p.Height / 2)
	if hit > maxHitOffset {
		hit = maxHitOffset
	} else if hit < -maxHitOffset {
		hit = -maxHitOffset
	}

	// Angle from the pre-increment speed, then speed up toward the cap.
	ball.DY = hit*ball.Speed + (r.rng.Float64()*2-1)*paddleJitter
	ball.Speed = min(r.Settings.MaxBallSpeed, ball.Speed*(1+r.Settings.IncrementMultiplier))
	ball.DX = direction * ball.Speed
}
