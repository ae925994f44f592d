package optimizer

// HeatNode groups heat producers, heat storages and heat consumers that
// exchange heat with each other over a shared balance. Heat does not
// flow between nodes.
type HeatNode struct {
	Name string

	HeatProducers []*HeatProducer
	HeatStorages  []*HeatStorage
	HeatConsumers []*HeatConsumer
}

// NewHeatNode returns an empty heat node.
func NewHeatNode(cfg *Config) *HeatNode {
	return &HeatNode{Name: "HeatNode"}
}

func (hn *HeatNode) validate(idx int, horizon int) error {
	for j, hp := range hn.HeatProducers {
		if err := hp.validate(j); err != nil {
			return err
		}
	}
	for j, hs := range hn.HeatStorages {
		if err := hs.validate(j); err != nil {
			return err
		}
	}
	for j, hc := range hn.HeatConsumers {
		if err := hc.validate(j, horizon); err != nil {
			return err
		}
	}
	return nil
}

func (hn *HeatNode) toDocument(includeResults bool) map[string]any {
	producers := map[string]any{}
	for j, hp := range hn.HeatProducers {
		producers[indexKey(j)] = hp.toDocument(includeResults)
	}
	storages := map[string]any{}
	for j, hs := range hn.HeatStorages {
		storages[indexKey(j)] = hs.toDocument(includeResults)
	}
	consumers := map[string]any{}
	for j, hc := range hn.HeatConsumers {
		consumers[indexKey(j)] = hc.toDocument(includeResults)
	}
	return map[string]any{
		"heatproducers_d": producers,
		"heatstorages_d":  storages,
		"heatconsumers_d": consumers,
	}
}

func heatNodeFromDocument(data map[string]any, includeResults bool) (*HeatNode, error) {
	hn := &HeatNode{Name: "HeatNode"}

	producers, err := docGroup(data, "heatproducers_d")
	if err != nil {
		return nil, err
	}
	for _, sub := range producers {
		hp, err := heatProducerFromDocument(sub, includeResults)
		if err != nil {
			return nil, err
		}
		hn.HeatProducers = append(hn.HeatProducers, hp)
	}

	storages, err := docGroup(data, "heatstorages_d")
	if err != nil {
		return nil, err
	}
	for _, sub := range storages {
		hs, err := heatStorageFromDocument(sub, includeResults)
		if err != nil {
			return nil, err
		}
		hn.HeatStorages = append(hn.HeatStorages, hs)
	}

	consumers, err := docGroup(data, "heatconsumers_d")
	if err != nil {
		return nil, err
	}
	for _, sub := range consumers {
		hc, err := heatConsumerFromDocument(sub, includeResults)
		if err != nil {
			return nil, err
		}
		hn.HeatConsumers = append(hn.HeatConsumers, hc)
	}
	return hn, nil
}
