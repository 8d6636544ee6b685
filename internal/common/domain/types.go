package domain

// CurrencyGBP is the only currency quotes are priced in.
const CurrencyGBP = "GBP"
