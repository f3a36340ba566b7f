package optics

// PSFKey identifies a cached PSF.
type PSFKey struct {
	Size     [2]int
	Training bool
}

// PSFCache holds at most one PSF. It is not safe for concurrent use.
type PSFCache struct {
	psf PSF
	key PSFKey
	ok  bool
}

// Get returns the cached PSF and the key it was stored under.
func (c *PSFCache) Get() (PSF, PSFKey, bool) {
	return c.psf, c.key, c.ok
}

// Put replaces the cached entry.
func (c *PSFCache) Put(key PSFKey, psf PSF) {
	c.psf = psf
	c.key = key
	c.ok = true
}

// Invalidate drops the cached entry.
func (c *PSFCache) Invalidate() {
	c.psf = nil
	c.key = PSFKey{}
	c.ok = false
}

// GetOrCompute returns a copy of the cached PSF, padded or cropped to
// key.Size, when useCache is set and the entry was stored with the same
// training flag. Otherwise it calls compute and stores the result.
func (c *PSFCache) GetOrCompute(key PSFKey, useCache bool, compute func() (PSF, error)) (PSF, error) {
	if useCache && c.ok && c.key.Training == key.Training {
		if c.key.Size == key.Size {
			return c.psf.Clone(), nil
		}
		return c.psf.PadOrCrop(key.Size[0], key.Size[1]), nil
	}
	psf, err := compute()
	if err != nil {
		return nil, err
	}
	c.Put(key, psf)
	return psf.Clone(), nil
}
