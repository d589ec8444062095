package ecs

// Each2 iterates over entities that have both component types a and b.
// It iterates over the smaller repository and looks entities up in the larger one.
func Each2(s *EntitySystem, a, b *ComponentType, fn func(Entity, Component, Component)) {
	ra, rb := s.Repository(a), s.Repository(b)
	if ra.Len() <= rb.Len() {
		ra.Each(func(ca Component) {
			e := ra.entityIndex[ca.index]
			if slot := rb.componentAt(e); slot != 0 {
				fn(ra.entityOf(ca.index), ca, rb.handle(slot))
			}
		})
	} else {
		rb.Each(func(cb Component) {
			e := rb.entityIndex[cb.index]
			if slot := ra.componentAt(e); slot != 0 {
				fn(rb.entityOf(cb.index), ra.handle(slot), cb)
			}
		})
	}
}

// Each3 iterates over entities that have component types a, b and c.
func Each3(s *EntitySystem, a, b, c *ComponentType, fn func(Entity, Component, Component, Component)) {
	repos := [3]*ComponentRepository{s.Repository(a), s.Repository(b), s.Repository(c)}

	// Iterate the smallest repository
	which := 0
	for i := 1; i < len(repos); i++ {
		if repos[i].Len() < repos[which].Len() {
			which = i
		}
	}

	repos[which].Each(func(driver Component) {
		e := repos[which].entityIndex[driver.index]
		var found [3]Component
		for i, r := range repos {
			slot := r.componentAt(e)
			if slot == 0 {
				return
			}
			found[i] = r.handle(slot)
		}
		fn(repos[which].entityOf(driver.index), found[0], found[1], found[2])
	})
}
