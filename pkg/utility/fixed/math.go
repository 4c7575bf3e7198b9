package fixed

// Mean returns the arithmetic mean of points, or Zero for an empty slice.
func Mean(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	sum := Zero
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.DivInt(len(points))
}

// Variance returns the population variance of points.
func Variance(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	mean := Mean(points)
	sum := Zero
	for _, p := range points {
		d := p.Sub(mean)
		sum = sum.Add(d.Mul(d))
	}
	return sum.DivInt(len(points))
}

// SampleVariance returns the Bessel-corrected variance of points.
func SampleVariance(points []Point) Point {
	if len(points) < 2 {
		return Zero
	}
	mean := Mean(points)
	sum := Zero
	for _, p := range points {
		d := p.Sub(mean)
		sum = sum.Add(d.Mul(d))
	}
	return sum.DivInt(len(points) - 1)
}

func StdDev(points []Point) Point {
	return Variance(points).Sqrt()
}

func SampleStdDev(points []Point) Point {
	return SampleVariance(points).Sqrt()
}

// DownsideDev returns the standard deviation of returns below target.
func DownsideDev(points []Point, target Point) Point {
	if len(points) == 0 {
		return Zero
	}
	sum := Zero
	for _, p := range points {
		if p.Lt(target) {
			d := p.Sub(target)
			sum = sum.Add(d.Mul(d))
		}
	}
	return sum.DivInt(len(points)).Sqrt()
}

// SharpeRatio computes a per-period sharpe ratio. Callers annualize by
// multiplying with Sqrt252 when the returns are daily.
func SharpeRatio(returns []Point, riskFree Point) Point {
	sd := StdDev(returns)
	if sd.IsZero() {
		return Zero
	}
	return Mean(returns).Sub(riskFree).Div(sd)
}

// SortinoRatio computes a per-period sortino ratio against downside
// deviation only.
func SortinoRatio(returns []Point, riskFree Point) Point {
	dd := DownsideDev(returns, riskFree)
	if dd.IsZero() {
		return Zero
	}
	return Mean(returns).Sub(riskFree).Div(dd)
}
