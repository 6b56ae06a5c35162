package memory

import "unsafe"

// Retire hands addr to the retired list. owner.Reclaim(addr) is called
// exactly once, by whichever scan or drain first finds addr unprotected.
// When the list reaches the scan threshold the caller scans inline.
func (d *Domain) Retire(addr unsafe.Pointer, owner Reclaimer) {
	n := d.retired.push(addr, owner)
	d.metrics.setRetired(n)
	if n >= d.cfg.ScanThreshold {
		d.Scan()
	}
}

// Scan reclaims every retired address that no registered slot publishes
// and returns how many were reclaimed. A reader that holds on to a value
// keeps it retired; there is no forced eviction.
func (d *Domain) Scan() int {
	out, remaining := d.retired.unprotected(d.registry.Snapshot)
	return d.reclaim(out, remaining, d.retired.done)
}

// Drain reclaims every address retired by owner without consulting the
// registry. The caller guarantees that none of them is still being read.
// When Drain returns, every Reclaim for owner has returned, including those
// started by a concurrent Scan. A Reclaim must therefore not Drain its own
// owner.
func (d *Domain) Drain(owner Reclaimer) int {
	out, remaining := d.retired.ownedBy(owner)
	n := d.reclaim(out, remaining, nil)
	d.retired.wait(owner)
	return n
}

// reclaim runs outside the list lock so that a Reclaim may itself retire.
// done, if set, is called after each Reclaim, even one that panics.
func (d *Domain) reclaim(out []retired, remaining int, done func(Reclaimer)) int {
	d.metrics.setRetired(remaining)
	for i, it := range out {
		if done == nil {
			it.owner.Reclaim(it.addr)
			continue
		}
		func() {
			defer done(it.owner)
			defer func() {
				// hand back the tail this pass will never reach
				if r := recover(); r != nil {
					for _, rest := range out[i+1:] {
						done(rest.owner)
					}
					panic(r)
				}
			}()
			it.owner.Reclaim(it.addr)
		}()
	}
	d.scans.Add(1)
	d.reclaimed.Add(uint64(len(out)))
	d.metrics.scanned(len(out))
	return len(out)
}
