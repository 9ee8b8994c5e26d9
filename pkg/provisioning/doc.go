// Package provisioning bridges author-declared Requirements to concrete
// providers deterministically (§4.4).
//
// Provisioners publish side-effect-free ProvisionOffers; Plan handles
// affordance requirements before dependency requirements, tries each
// requirement's offers by priority (highest first), then cost (cheapest
// first), then provisioner id, and accepts exactly one per requirement,
// binding requirement.provider_id through the Effect Buffer.
// Five standard provisioners cover the spectrum from reusing an existing
// node (cheapest) to materializing one from a template or asset bundle
// (most expensive).
package provisioning
