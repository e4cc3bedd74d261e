package control

// flattenDevices lists each sub-device followed by its descendants.
func flattenDevices(subs []*Device) []*Device {
	var out []*Device
	for _, sub := range subs {
		out = append(out, sub)
		out = append(out, sub.devices...)
	}
	return out
}

// collectServices returns own followed by the services of every device in
// descendants, keeping the first occurrence of each service.
func collectServices(own []*Service, descendants []*Device) []*Service {
	seen := make(map[*Service]struct{}, len(own))
	var out []*Service

	add := func(s *Service) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, s := range own {
		add(s)
	}
	for _, dev := range descendants {
		for _, s := range dev.services {
			add(s)
		}
	}
	return out
}
