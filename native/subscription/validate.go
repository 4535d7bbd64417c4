package subscription

// ValidatePlans checks a proposed catalog. The first failing rule wins:
// mismatched lengths, catalog size, name lengths, URL lengths, URL format,
// then prices. Image URLs may be given in base64 transport form.
func ValidatePlans(name string, prices []uint64, names []string, imageURLs []string) error {
	if len(prices) != len(names) || len(names) != len(imageURLs) {
		return ErrInvalidInputLength
	}
	if len(prices) > MaxPlans {
		return ErrTooManyPlans
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	for _, planName := range names {
		if len(planName) > MaxNameLength {
			return ErrNameTooLong
		}
	}
	links := make([]string, len(imageURLs))
	for i, raw := range imageURLs {
		links[i] = DecodeImageURL(raw)
		if len(links[i]) > MaxURLLength {
			return ErrURLTooLong
		}
	}
	for _, link := range links {
		if !isAbsoluteURL(link) {
			return ErrInvalidURLFormat
		}
	}
	for _, price := range prices {
		if price < MinPlanPrice {
			return ErrPlanPriceTooLow
		}
	}
	return nil
}

// buildPlans validates the catalog and returns it as structured plans with
// image URLs in plain form.
func buildPlans(name string, prices []uint64, names []string, imageURLs []string) ([]Plan, error) {
	if err := ValidatePlans(name, prices, names, imageURLs); err != nil {
		return nil, err
	}
	plans := make([]Plan, len(prices))
	for i := range prices {
		plans[i] = Plan{Price: prices[i], Name: names[i], ImageURL: DecodeImageURL(imageURLs[i])}
	}
	return plans, nil
}
