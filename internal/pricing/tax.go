package pricing

// TaxLine computes the net and tax amounts for one line given its total
// allocated discount and the store's tax mode.
//
// In price-inclusive mode the tax is the residual of the gross line value
// after deriving the net, so net+tax reconstructs the gross exactly and no
// rounding residual escapes the line. In price-exclusive mode the tax is
// added on top of the rounded net.
//
// Authoritative per-unit catalog prices, when present on the line, take
// precedence over the rate-based formula for the matching mode.
func TaxLine(it LineItem, discountAllocated Money, priceIncludesTax bool) (netAmount, taxAmount Money) {
	qty := float64(it.Quantity)
	adjustedUnit := float64(it.UnitPrice) - float64(discountAllocated)/qty
	if adjustedUnit < 0 {
		adjustedUnit = 0
	}

	if priceIncludesTax {
		gross := round(adjustedUnit * qty)
		taxAmount = inclusiveTax(it, gross)
		netAmount = gross - taxAmount
		return netAmount, taxAmount
	}

	netAmount = round(adjustedUnit * qty)
	taxAmount = exclusiveTax(it, netAmount)
	return netAmount, taxAmount
}

func inclusiveTax(it LineItem, gross Money) Money {
	if it.BeforeTaxPrice != nil {
		tax := (it.UnitPrice - *it.BeforeTaxPrice) * Money(it.Quantity)
		return clampTax(tax, gross)
	}
	net := round(float64(gross) / (1 + it.TaxRatePercent/100))
	return gross - net
}

func exclusiveTax(it LineItem, net Money) Money {
	if it.AfterTaxPrice != nil {
		tax := (*it.AfterTaxPrice - it.UnitPrice) * Money(it.Quantity)
		if tax < 0 {
			return 0
		}
		return tax
	}
	return round(float64(net) * it.TaxRatePercent / 100)
}

// clampTax keeps a catalog-derived tax inside [0, gross] so the derived net
// amount never goes negative.
func clampTax(tax, gross Money) Money {
	if tax < 0 {
		return 0
	}
	if tax > gross {
		return gross
	}
	return tax
}
