// Package allocate splits the paid-or-organic residual of each product
// into paid-traffic (PPC) and organic orders.
//
// PPC orders are only known per category: (market, month, brand, product
// group). Each product receives the category count multiplied by its
// share of the category residual, smoothed over a trailing window of
// consecutive months. The steps are:
//
//  1. residual = total Amazon quantity - liquidation - promotion
//  2. category residual = sum of product residuals in the category
//  3. portion = product monthly residual / category residual (0 when the
//     category residual is 0)
//  4. smoothed portion = mean of the portions of the current and
//     preceding consecutive months, up to the window size
//  5. PPC = category PPC orders * smoothed portion, capped at the
//     residual and rounded half to even; organic = residual - PPC
//
// Every step degrades instead of failing: missing partners are treated as
// zero and reported as diagnostics.
package allocate
