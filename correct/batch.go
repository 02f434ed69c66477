package correct

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/Davydov/lprcorr/lpr"
)

// Cache stores finished fits, see checkpoint.Store.
type Cache interface {
	Load(key []byte, v interface{}) (bool, error)
	Save(key []byte, v interface{}) error
}

// fitKey identifies a fit by everything which changes its result.
func fitKey(mu, sigma float64, params lpr.Params, opts Options) []byte {
	return []byte(fmt.Sprintf("%v/%v/%v/%v/%s/%d/%v/%v/%v/%d/%d",
		mu, sigma, params.Alpha, params.Beta, opts.Method, opts.Iterations, opts.Scale, opts.Ref, opts.Tolerance,
		opts.Restarts, opts.Seed))
}

// cachedFit returns the stored fit or fits and stores it.
func cachedFit(cache Cache, mu, sigma float64, params lpr.Params, opts Options) (*Fit, error) {
	key := fitKey(mu, sigma, params, opts)
	if cache != nil {
		fit := &Fit{}
		ok, err := cache.Load(key, fit)
		if err != nil {
			return nil, err
		}
		if ok {
			log.Debugf("using the stored fit for mu=%g, sigma=%g", mu, sigma)
			if !fit.Converged {
				fit.Warning = fit.warning(opts.Tolerance)
			}
			return fit, nil
		}
	}
	fit, err := FitSkewNormal(mu, sigma, params, opts)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Save(key, fit); err != nil {
			log.Warningf("cannot store the fit for mu=%g, sigma=%g: %v", mu, sigma, err)
		}
	}
	return fit, nil
}

// FitEach fits a skew-normal distribution for every (mus[i],
// sigmas[i]) pair. The fits are independent and run concurrently,
// at most opts.Workers at a time. The result is in the input order.
// The first error cancels the fits which have not started yet.
func FitEach(ctx context.Context, mus, sigmas []float64, params lpr.Params, opts Options) ([]*Fit, error) {
	return FitEachCached(ctx, mus, sigmas, params, opts, nil)
}

// FitEachCached is FitEach which takes the fits found in the cache
// and stores the new ones there. cache may be nil.
func FitEachCached(ctx context.Context, mus, sigmas []float64, params lpr.Params, opts Options, cache Cache) ([]*Fit, error) {
	if len(mus) != len(sigmas) {
		return nil, errors.Errorf("len(mus)=%d != len(sigmas)=%d", len(mus), len(sigmas))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	fits := make([]*Fit, len(mus))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range mus {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fit, err := cachedFit(cache, mus[i], sigmas[i], params, opts)
			if err != nil {
				return errors.Wrapf(err, "fit %d (mu=%g, sigma=%g)", i, mus[i], sigmas[i])
			}
			fits[i] = fit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Infof("fitted %d distributions", len(fits))
	return fits, nil
}

// NotConverged returns the indices of the fits which did not
// converge.
func NotConverged(fits []*Fit) []int {
	var idx []int
	for i, f := range fits {
		if f != nil && !f.Converged {
			idx = append(idx, i)
		}
	}
	return idx
}
