package scoring

import "github.com/kirillkom/catman-audit/internal/core/domain"

var narratives = map[domain.CategoryKey]map[domain.Band]string{
	domain.CategorySeeIt: {
		domain.BandStrong:   "La catégorie capte le regard : elle se repère de loin et casse le mode pilote automatique du shopper.",
		domain.BandModerate: "La catégorie est visible mais se fond encore dans le linéaire ; renforcer les ruptures visuelles et le mouvement.",
		domain.BandWeak:     "La catégorie passe inaperçue : aucun signal ne l'impose dans le parcours du shopper.",
	},
	domain.CategoryFindIt: {
		domain.BandStrong:   "Le shopper s'oriente sans effort : marques, segments et produits héros sont immédiatement lisibles.",
		domain.BandModerate: "La navigation demande un effort de lecture ; clarifier la segmentation et glorifier les produits héros.",
		domain.BandWeak:     "Le shopper se perd : l'organisation du rayon ne suit pas une logique compréhensible par un non-expert.",
	},
	domain.CategoryChooseIt: {
		domain.BandStrong:   "Le choix est facilité : messages courts, vocabulaire simple et hiérarchie de lecture respectée.",
		domain.BandModerate: "Le choix reste possible mais coûteux ; simplifier les messages et le balisage comparatif.",
		domain.BandWeak:     "Le choix est pénible : jargon, messages longs et absence d'aide à la comparaison.",
	},
	domain.CategoryBuyIt: {
		domain.BandStrong:   "Tout pousse à l'achat : appel à l'action clair, bénéfice visible, best-sellers en zone chaude.",
		domain.BandModerate: "Le passage à l'acte est freiné ; travailler l'appel à l'action, le prix et la disponibilité.",
		domain.BandWeak:     "Rien ne déclenche l'achat : bénéfice absent, ruptures ou prix peu lisibles.",
	},
}

// Narrative returns the canned verdict text of a category band. Undefined
// bands and unknown categories have no text.
func Narrative(category domain.CategoryKey, band domain.Band) string {
	return narratives[category][band]
}
